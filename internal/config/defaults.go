package config

import "github.com/hyperjump/pillbox/internal/druginfo"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Lexicon.Path == "" {
		cfg.Lexicon.Path = "./drug_lexicon.txt"
	}
	if cfg.Matcher.MinConfidence == 0 {
		cfg.Matcher.MinConfidence = 0.50
	}
	if cfg.Matcher.Threshold == 0 {
		cfg.Matcher.Threshold = 0.45
	}
	if cfg.Matcher.RelaxedThreshold == 0 {
		cfg.Matcher.RelaxedThreshold = 0.40
	}
	if cfg.Matcher.StrictThreshold == 0 {
		cfg.Matcher.StrictThreshold = 0.50
	}
	if cfg.DrugInfo.BaseURL == "" {
		cfg.DrugInfo.BaseURL = druginfo.DefaultBaseURL
	}
	if cfg.DrugInfo.TimeoutSeconds == 0 {
		cfg.DrugInfo.TimeoutSeconds = 10
	}
	if cfg.DrugInfo.Cache == "" {
		cfg.DrugInfo.Cache = CacheMemory
	}
	if cfg.DrugInfo.CacheSize == 0 {
		cfg.DrugInfo.CacheSize = 1000
	}
	if cfg.DrugInfo.DatabasePath == "" {
		cfg.DrugInfo.DatabasePath = "./data/druginfo.db"
	}
	if cfg.DrugInfo.TTLHours == 0 {
		cfg.DrugInfo.TTLHours = 24 * 7
	}
	if cfg.Schedule.Breakfast == "" {
		cfg.Schedule.Breakfast = "08:00"
	}
	if cfg.Schedule.Lunch == "" {
		cfg.Schedule.Lunch = "12:00"
	}
	if cfg.Schedule.Dinner == "" {
		cfg.Schedule.Dinner = "19:00"
	}
}
