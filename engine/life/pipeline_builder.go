package life

// pipelineConfig holds the options shared by the simulation and render pipelines.
type pipelineConfig struct {
	key      string
	validate bool
}

// PipelineOption is a functional option used to configure NewSimulationPipeline and NewRenderPipeline.
type PipelineOption func(*pipelineConfig)

// WithPipelineKey overrides the key the pipeline is cached under in the renderer.
//
// Parameters:
//   - key: the pipeline key
//
// Returns:
//   - PipelineOption: a function that sets the key
func WithPipelineKey(key string) PipelineOption {
	return func(c *pipelineConfig) {
		if key != "" {
			c.key = key
		}
	}
}

// WithShaderValidation compiles every stage with naga during construction, so WGSL errors surface
// before the device sees the module.
//
// Parameters:
//   - enabled: whether to validate
//
// Returns:
//   - PipelineOption: a function that sets shader validation
func WithShaderValidation(enabled bool) PipelineOption {
	return func(c *pipelineConfig) {
		c.validate = enabled
	}
}

func newPipelineConfig(key string, options []PipelineOption) pipelineConfig {
	c := pipelineConfig{key: key}
	for _, opt := range options {
		opt(&c)
	}
	return c
}
