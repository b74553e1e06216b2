package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the subset of *secretsmanager.Client used to resolve the DSN.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// dbSecret is the JSON document RDS stores for generated credentials.
type dbSecret struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"dbname"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ResolveDatabaseDSN replaces DatabaseDSN with one built from the secret
// named by DBSecretARN. It is a no-op when DBSecretARN is empty.
func ResolveDatabaseDSN(ctx context.Context, c *Config, client SecretsAPI) error {
	if c.DBSecretARN == "" {
		return nil
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(c.DBSecretARN),
	})
	if err != nil {
		return fmt.Errorf("get db secret: %w", err)
	}

	var s dbSecret
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &s); err != nil {
		return fmt.Errorf("decode db secret: %w", err)
	}
	if s.Host == "" || s.Username == "" {
		return fmt.Errorf("db secret %s lacks host or username", c.DBSecretARN)
	}
	if s.Port == 0 {
		s.Port = 5432
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.Username, s.Password),
		Host:     s.Host + ":" + strconv.Itoa(s.Port),
		Path:     "/" + s.DBName,
		RawQuery: "sslmode=require",
	}
	c.DatabaseDSN = dsn.String()
	return nil
}
