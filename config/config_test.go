package config

import "testing"

func TestCloudMode(t *testing.T) {
	tests := []struct {
		name     string
		mongoURI string
		want     bool
	}{
		{"empty URI selects local mode", "", false},
		{"placeholder selects local mode", "YOUR_MONGO_URI", false},
		{"whitespace-only selects local mode", "   ", false},
		{"real URI selects cloud mode", "mongodb://localhost:27017/spendtrack", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{MongoURI: tt.mongoURI}
			if got := cfg.CloudMode(); got != tt.want {
				t.Errorf("CloudMode() = %v, want %v", got, tt.want)
			}
		})
	}
}
