package life

import "go.uber.org/zap"

// ResourceSetOption is a functional option used to configure a ResourceSet during construction.
type ResourceSetOption func(*resourceSet)

// WithResourceLabel sets the prefix of every buffer and bind group label. Defaults to "Cells".
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - ResourceSetOption: a function that sets the label prefix
func WithResourceLabel(label string) ResourceSetOption {
	return func(rs *resourceSet) {
		if label != "" {
			rs.label = label
		}
	}
}

// WithResourceLogger sets the logger used for allocation diagnostics.
func WithResourceLogger(logger *zap.Logger) ResourceSetOption {
	return func(rs *resourceSet) {
		if logger != nil {
			rs.logger = logger.Named("resources")
		}
	}
}
