package testutils

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/kelseyhightower/envconfig"
)

// DynamoDBConfig is an object that we fill from the environment.
type DynamoDBConfig struct {
	Region    string `default:"us-east-1"`
	Endpoint  string `envconfig:"DYNAMODB_ENDPOINT"`
	AccessID  string `envconfig:"ACCESS_KEY_ID"`
	SecretKey string `envconfig:"SECRET_ACCESS_KEY"`
}

var awsCfg *aws.Config

// GetAWSCfg is a quick way to retrieve an AWS config for tests. Uses
// environment variables with the AWSCONFIG prefix; an endpoint override
// points the SDK at a local DynamoDB.
func GetAWSCfg() aws.Config {
	if awsCfg == nil {
		var conf DynamoDBConfig
		envconfig.MustProcess("AWSCONFIG", &conf)

		opts := []func(*config.LoadOptions) error{
			config.WithRegion(conf.Region),
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(conf.AccessID, conf.SecretKey, ""),
			),
		}
		if conf.Endpoint != "" {
			opts = append(opts, config.WithEndpointResolverWithOptions(
				aws.EndpointResolverWithOptionsFunc(
					func(service, region string, options ...interface{}) (aws.Endpoint, error) {
						return aws.Endpoint{URL: conf.Endpoint}, nil
					},
				),
			))
		}

		cfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
		if err != nil {
			panic(err)
		}
		awsCfg = &cfg
	}
	return *awsCfg
}
