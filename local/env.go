package local

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// FunctionConfigurationGetter is the part of the Lambda API client that
// FunctionEnv uses.
type FunctionConfigurationGetter interface {
	GetFunctionConfiguration(ctx context.Context, params *lambda.GetFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error)
}

// FunctionEnv returns the environment variables of the deployed Lambda
// function name. A log group name is accepted in place of the function name.
func FunctionEnv(ctx context.Context, client FunctionConfigurationGetter, name string) (map[string]string, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/aws/lambda/")
	res, err := client.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read environment vars for lambda function %s: %w", name, err)
	}
	if res.Environment == nil {
		return map[string]string{}, nil
	}
	return res.Environment.Variables, nil
}

// LoadFunctionEnv copies the environment of the deployed Lambda function
// name into the process environment, using the default AWS credentials
// chain. Variables already set locally are kept. It returns the names of
// the variables it set.
func LoadFunctionEnv(ctx context.Context, name string) ([]string, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	vars, err := FunctionEnv(ctx, lambda.NewFromConfig(cfg), name)
	if err != nil {
		return nil, err
	}
	return SetEnv(vars)
}

// SetEnv sets every variable in vars that is not already set, and returns
// the names it set.
func SetEnv(vars map[string]string) ([]string, error) {
	var set []string
	for k, v := range vars {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return set, err
		}
		set = append(set, k)
	}
	return set, nil
}
