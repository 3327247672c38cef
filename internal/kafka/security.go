package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/IBM/sarama"
	"github.com/aws/aws-msk-iam-sasl-signer-go/signer"
	"github.com/xdg-go/scram"
)

// SecurityConfig carries the transport security settings shared by the
// producer, consumer and DLQ publisher.
type SecurityConfig struct {
	Protocol       string // PLAINTEXT, SASL_PLAINTEXT, SASL_SSL, SSL
	SASLMechanism  string // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512, AWS_MSK_IAM
	SASLUsername   string
	SASLPassword   string
	AWSRegion      string
	TLSSkipVerify  bool
	CACertFile     string
	ClientCertFile string
	ClientKeyFile  string
}

// MSKAccessTokenProvider implements sarama.AccessTokenProvider for AWS
// MSK IAM authentication.
type MSKAccessTokenProvider struct {
	region string
}

// Token generates an AWS MSK IAM authentication token.
func (m *MSKAccessTokenProvider) Token() (*sarama.AccessToken, error) {
	token, expiryMs, err := signer.GenerateAuthToken(context.Background(), m.region)
	if err != nil {
		return nil, fmt.Errorf("failed to generate MSK IAM token: %w", err)
	}
	return &sarama.AccessToken{
		Token: token,
		Extensions: map[string]string{
			"expiry": fmt.Sprintf("%d", expiryMs),
		},
	}, nil
}

// configureSecurity applies sec to a Sarama config.
func configureSecurity(config *sarama.Config, sec SecurityConfig) error {
	switch sec.Protocol {
	case "", "PLAINTEXT":
		return nil

	case "SASL_PLAINTEXT", "SASL_SSL":
		config.Net.SASL.Enable = true

		switch sec.SASLMechanism {
		case "PLAIN":
			config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
			config.Net.SASL.User = sec.SASLUsername
			config.Net.SASL.Password = sec.SASLPassword

		case "SCRAM-SHA-256":
			config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			config.Net.SASL.User = sec.SASLUsername
			config.Net.SASL.Password = sec.SASLPassword
			config.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return newSCRAMClient(scram.SHA256)
			}

		case "SCRAM-SHA-512":
			config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			config.Net.SASL.User = sec.SASLUsername
			config.Net.SASL.Password = sec.SASLPassword
			config.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return newSCRAMClient(scram.SHA512)
			}

		case "AWS_MSK_IAM":
			config.Net.SASL.Mechanism = sarama.SASLTypeOAuth
			// OAuth does not use credentials, but Sarama validates that
			// they are non-empty.
			config.Net.SASL.User = "token"
			config.Net.SASL.Password = "token"
			region := sec.AWSRegion
			if region == "" {
				region = "us-east-1"
			}
			config.Net.SASL.TokenProvider = &MSKAccessTokenProvider{region: region}

		default:
			return fmt.Errorf("unsupported SASL mechanism: %s", sec.SASLMechanism)
		}

		if sec.Protocol == "SASL_SSL" {
			tlsCfg, err := tlsConfig(sec)
			if err != nil {
				return err
			}
			config.Net.TLS.Enable = true
			config.Net.TLS.Config = tlsCfg
		}

	case "SSL":
		tlsCfg, err := tlsConfig(sec)
		if err != nil {
			return err
		}
		config.Net.TLS.Enable = true
		config.Net.TLS.Config = tlsCfg

	default:
		return fmt.Errorf("unsupported security protocol: %s", sec.Protocol)
	}

	return nil
}

func tlsConfig(sec SecurityConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: sec.TLSSkipVerify,
	}

	if sec.CACertFile != "" {
		caCert, err := os.ReadFile(sec.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA certificate")
		}
		tlsCfg.RootCAs = caCertPool
	}

	if sec.ClientCertFile != "" && sec.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(sec.ClientCertFile, sec.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	return tlsCfg, nil
}
