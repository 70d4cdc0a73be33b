package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	cfg.Capture.ApplyDefaults()

	if cfg.Inputs.ComplexesFormat == "" {
		cfg.Inputs.ComplexesFormat = "auto"
	}
	if cfg.Outputs.LabelsFormat == "" {
		cfg.Outputs.LabelsFormat = "csv"
	}
	if cfg.Outputs.TreeName == "" {
		cfg.Outputs.TreeName = "root"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "comap.db"
	}
}
