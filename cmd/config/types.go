package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContextConfig holds context-related flags
type ContextConfig struct {
	JSON string
	KV   []string
	File string
}

// UploadConfig holds upload-related flags
type UploadConfig struct {
	Provider   string
	Config     string
	ConfigKV   []string
	ConfigFile string
	Compress   bool
}

// CommonFlags holds flags shared by grade and batch
type CommonFlags struct {
	Verbose           bool
	DryRun            bool
	TimeoutStr        string
	Timeout           time.Duration
	ScoreStr          string
	Score             *decimal.Decimal
	HonorAutoComplete bool
}

// WebhookConfig holds webhook-related flags
type WebhookConfig struct {
	URL        string
	Method     string
	AuthType   string
	AuthToken  string
	Timeout    string
	Retries    int
	RetryDelay string

	// Alternative configuration methods
	Config     string   // JSON string configuration
	ConfigKV   []string // Key-value pairs
	ConfigFile string   // Path to JSON config file
}

// SubmissionFlags identify the single submission graded by the grade command
type SubmissionFlags struct {
	ID       string
	Source   string
	Spec     string
	SpecFile string
}
