package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	s3Client *s3.Client
	s3Once   sync.Once
)

// ConnectS3 initializes a singleton S3 client from the default AWS credential
// chain. Skipped in the test environment; document endpoints treat a nil
// client as "storage unavailable".
func ConnectS3() (*s3.Client, error) {
	var err error
	s3Once.Do(func() {
		cfg := LoadConfig()
		if cfg != nil && cfg.AppEnv == "test" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		awsCfg, loadErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if loadErr != nil {
			err = fmt.Errorf("unable to load AWS SDK config: %w", loadErr)
			return
		}

		s3Client = s3.NewFromConfig(awsCfg)
	})
	return s3Client, err
}

// GetS3Client returns the initialized S3 client (may be nil if ConnectS3 failed or not called).
func GetS3Client() *s3.Client {
	return s3Client
}

// SetS3ClientForTesting allows tests to inject a stub S3 client.
func SetS3ClientForTesting(client *s3.Client) {
	s3Client = client
}
