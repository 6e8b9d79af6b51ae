package logger

const (
	ComponentMain      = "main"
	ComponentConfig    = "config"
	ComponentDiscovery = "discovery"
	ComponentLayer2    = "layer2"
	ComponentLayer4    = "layer4"
	ComponentMetrics   = "metrics"
)
