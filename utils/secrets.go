package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/tantralabs/krypto/logger"
)

// LoadENV copies every key of a JSON secrets-manager secret into the process environment.
// Existing variables are overwritten.
func LoadENV(secretName string, region string) error {
	secretFile, err := getSecret(secretName, region)
	if err != nil {
		return err
	}
	secret := make(map[string]interface{})
	if err := json.Unmarshal([]byte(secretFile), &secret); err != nil {
		return fmt.Errorf("secret %s is not a JSON object: %w", secretName, err)
	}
	for key, value := range secret {
		logger.Debugf("Setting ENV: %s", key)
		os.Setenv(key, fmt.Sprint(value))
	}
	return nil
}

func getSecret(secretName string, region string) (string, error) {
	sess, err := session.NewSession()
	if err != nil {
		return "", err
	}
	svc := secretsmanager.New(sess, aws.NewConfig().WithRegion(region))
	input := &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretName),
		VersionStage: aws.String("AWSCURRENT"), // VersionStage defaults to AWSCURRENT if unspecified
	}

	result, err := svc.GetSecretValue(input)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			return "", fmt.Errorf("secretsmanager %s: %s: %w", secretName, aerr.Code(), err)
		}
		return "", err
	}

	// Depending on whether the secret is a string or binary, one of these fields will be populated.
	if result.SecretString != nil {
		return *result.SecretString, nil
	}
	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(result.SecretBinary)))
	n, err := base64.StdEncoding.Decode(decoded, result.SecretBinary)
	if err != nil {
		return "", fmt.Errorf("base64 decode %s: %w", secretName, err)
	}
	return string(decoded[:n]), nil
}
