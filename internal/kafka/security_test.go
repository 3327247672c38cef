package kafka

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/IBM/sarama"
)

func TestConfigureSecurity(t *testing.T) {
	tests := []struct {
		name         string
		sec          SecurityConfig
		wantErr      bool
		wantSASL     bool
		wantTLS      bool
		wantSASLMech sarama.SASLMechanism
	}{
		{
			name: "empty defaults to plaintext",
			sec:  SecurityConfig{},
		},
		{
			name: "explicit plaintext",
			sec:  SecurityConfig{Protocol: "PLAINTEXT"},
		},
		{
			name:    "ssl",
			sec:     SecurityConfig{Protocol: "SSL"},
			wantTLS: true,
		},
		{
			name: "sasl plaintext with PLAIN",
			sec: SecurityConfig{
				Protocol:      "SASL_PLAINTEXT",
				SASLMechanism: "PLAIN",
				SASLUsername:  "user",
				SASLPassword:  "pass",
			},
			wantSASL:     true,
			wantSASLMech: sarama.SASLTypePlaintext,
		},
		{
			name: "sasl ssl with SCRAM-SHA-256",
			sec: SecurityConfig{
				Protocol:      "SASL_SSL",
				SASLMechanism: "SCRAM-SHA-256",
				SASLUsername:  "user",
				SASLPassword:  "pass",
			},
			wantSASL:     true,
			wantTLS:      true,
			wantSASLMech: sarama.SASLTypeSCRAMSHA256,
		},
		{
			name: "sasl ssl with SCRAM-SHA-512",
			sec: SecurityConfig{
				Protocol:      "SASL_SSL",
				SASLMechanism: "SCRAM-SHA-512",
				SASLUsername:  "user",
				SASLPassword:  "pass",
			},
			wantSASL:     true,
			wantTLS:      true,
			wantSASLMech: sarama.SASLTypeSCRAMSHA512,
		},
		{
			name: "sasl ssl with AWS MSK IAM",
			sec: SecurityConfig{
				Protocol:      "SASL_SSL",
				SASLMechanism: "AWS_MSK_IAM",
				AWSRegion:     "eu-west-1",
			},
			wantSASL:     true,
			wantTLS:      true,
			wantSASLMech: sarama.SASLTypeOAuth,
		},
		{
			name: "unsupported mechanism",
			sec: SecurityConfig{
				Protocol:      "SASL_SSL",
				SASLMechanism: "GSSAPI",
			},
			wantErr: true,
		},
		{
			name:    "unsupported protocol",
			sec:     SecurityConfig{Protocol: "INVALID"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := sarama.NewConfig()
			err := configureSecurity(config, tt.sec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("configureSecurity() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}

			if config.Net.SASL.Enable != tt.wantSASL {
				t.Errorf("SASL.Enable = %v, want %v", config.Net.SASL.Enable, tt.wantSASL)
			}
			if config.Net.TLS.Enable != tt.wantTLS {
				t.Errorf("TLS.Enable = %v, want %v", config.Net.TLS.Enable, tt.wantTLS)
			}
			if tt.wantSASL && config.Net.SASL.Mechanism != tt.wantSASLMech {
				t.Errorf("SASL.Mechanism = %v, want %v", config.Net.SASL.Mechanism, tt.wantSASLMech)
			}
		})
	}
}

func TestConfigureSecurity_SCRAMGenerator(t *testing.T) {
	config := sarama.NewConfig()
	sec := SecurityConfig{
		Protocol:      "SASL_PLAINTEXT",
		SASLMechanism: "SCRAM-SHA-256",
		SASLUsername:  "user",
		SASLPassword:  "pass",
	}

	if err := configureSecurity(config, sec); err != nil {
		t.Fatalf("configureSecurity() error = %v", err)
	}
	if config.Net.SASL.SCRAMClientGeneratorFunc == nil {
		t.Fatal("SCRAMClientGeneratorFunc not set")
	}
	if client := config.Net.SASL.SCRAMClientGeneratorFunc(); client == nil {
		t.Error("SCRAM client generator returned nil")
	}
}

func TestConfigureSecurity_MSKIAMDefaults(t *testing.T) {
	config := sarama.NewConfig()
	sec := SecurityConfig{
		Protocol:      "SASL_SSL",
		SASLMechanism: "AWS_MSK_IAM",
	}

	if err := configureSecurity(config, sec); err != nil {
		t.Fatalf("configureSecurity() error = %v", err)
	}

	provider, ok := config.Net.SASL.TokenProvider.(*MSKAccessTokenProvider)
	if !ok {
		t.Fatalf("TokenProvider = %T, want *MSKAccessTokenProvider", config.Net.SASL.TokenProvider)
	}
	if provider.region != "us-east-1" {
		t.Errorf("region = %q, want us-east-1", provider.region)
	}
	// Sarama rejects empty SASL credentials even for OAuth.
	if config.Net.SASL.User == "" || config.Net.SASL.Password == "" {
		t.Error("SASL user and password must be non-empty for OAuth")
	}
}

func TestTLSConfig_SkipVerify(t *testing.T) {
	tests := []struct {
		name       string
		skipVerify bool
	}{
		{"verify enabled", false},
		{"verify disabled", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tlsConfig(SecurityConfig{TLSSkipVerify: tt.skipVerify})
			if err != nil {
				t.Fatalf("tlsConfig() error = %v", err)
			}
			if cfg.InsecureSkipVerify != tt.skipVerify {
				t.Errorf("InsecureSkipVerify = %v, want %v", cfg.InsecureSkipVerify, tt.skipVerify)
			}
		})
	}
}

func TestTLSConfig_CACertificate(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := tlsConfig(SecurityConfig{CACertFile: "/nonexistent/ca.pem"})
		if err == nil {
			t.Fatal("tlsConfig() error = nil, want read failure")
		}
	})

	t.Run("malformed pem", func(t *testing.T) {
		caFile := filepath.Join(t.TempDir(), "ca.pem")
		if err := os.WriteFile(caFile, []byte("not a certificate"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := tlsConfig(SecurityConfig{CACertFile: caFile})
		if err == nil {
			t.Fatal("tlsConfig() error = nil, want parse failure")
		}
	})
}
