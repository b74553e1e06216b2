package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/flagx"
	"github.com/dmitrijs2005/gophtodo/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations use timex.Duration so
// both "1m" and integer nanoseconds are accepted.
type JsonConfig struct {
	HTTPAddr             string         `json:"http_addr"`
	HealthAddr           string         `json:"health_addr"`
	StoreBackend         string         `json:"store_backend"`
	DatabaseDSN          string         `json:"database_dsn"`
	DBSecretARN          string         `json:"db_secret_arn"`
	TableName            string         `json:"table_name"`
	ProfileTableName     string         `json:"profile_table_name"`
	S3Bucket             string         `json:"s3_bucket"`
	S3Prefix             string         `json:"s3_prefix"`
	AWSRegion            string         `json:"aws_region"`
	AWSEndpoint          string         `json:"aws_endpoint"`
	AWSAccessKeyID       string         `json:"aws_access_key_id"`
	AWSSecretAccessKey   string         `json:"aws_secret_access_key"`
	SchedulerBackend     string         `json:"scheduler_backend"`
	QueueURL             string         `json:"queue_url"`
	QueueARN             string         `json:"queue_arn"`
	SchedulerRoleARN     string         `json:"scheduler_role_arn"`
	ScheduleGroup        string         `json:"schedule_group"`
	AgingDelay           timex.Duration `json:"aging_delay"`
	QueueWaitTime        timex.Duration `json:"queue_wait_time"`
	PartialBatchResponse bool           `json:"partial_batch_response"`
	ResourceName         string         `json:"resource_name"`
	SecretKey            string         `json:"secret_key"`
	LogBackend           string         `json:"log_backend"`
	ShutdownTimeout      timex.Duration `json:"shutdown_timeout"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		HTTPAddr:             c.HTTPAddr,
		HealthAddr:           c.HealthAddr,
		StoreBackend:         c.StoreBackend,
		DatabaseDSN:          c.DatabaseDSN,
		DBSecretARN:          c.DBSecretARN,
		TableName:            c.TableName,
		ProfileTableName:     c.ProfileTableName,
		S3Bucket:             c.S3Bucket,
		S3Prefix:             c.S3Prefix,
		AWSRegion:            c.AWSRegion,
		AWSEndpoint:          c.AWSEndpoint,
		AWSAccessKeyID:       c.AWSAccessKeyID,
		AWSSecretAccessKey:   c.AWSSecretAccessKey,
		SchedulerBackend:     c.SchedulerBackend,
		QueueURL:             c.QueueURL,
		QueueARN:             c.QueueARN,
		SchedulerRoleARN:     c.SchedulerRoleARN,
		ScheduleGroup:        c.ScheduleGroup,
		AgingDelay:           timex.Duration{Duration: c.AgingDelay},
		QueueWaitTime:        timex.Duration{Duration: c.QueueWaitTime},
		PartialBatchResponse: c.PartialBatchResponse,
		ResourceName:         c.ResourceName,
		SecretKey:            c.SecretKey,
		LogBackend:           c.LogBackend,
		ShutdownTimeout:      timex.Duration{Duration: c.ShutdownTimeout},
	}
}

// parseJson overlays the file named by -c/-config onto config. Keys missing
// from the file keep their current values. An unreadable or invalid file
// panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.HTTPAddr = c.HTTPAddr
	config.HealthAddr = c.HealthAddr
	config.StoreBackend = c.StoreBackend
	config.DatabaseDSN = c.DatabaseDSN
	config.DBSecretARN = c.DBSecretARN
	config.TableName = c.TableName
	config.ProfileTableName = c.ProfileTableName
	config.S3Bucket = c.S3Bucket
	config.S3Prefix = c.S3Prefix
	config.AWSRegion = c.AWSRegion
	config.AWSEndpoint = c.AWSEndpoint
	config.AWSAccessKeyID = c.AWSAccessKeyID
	config.AWSSecretAccessKey = c.AWSSecretAccessKey
	config.SchedulerBackend = c.SchedulerBackend
	config.QueueURL = c.QueueURL
	config.QueueARN = c.QueueARN
	config.SchedulerRoleARN = c.SchedulerRoleARN
	config.ScheduleGroup = c.ScheduleGroup
	config.AgingDelay = time.Duration(c.AgingDelay.Duration)
	config.QueueWaitTime = time.Duration(c.QueueWaitTime.Duration)
	config.PartialBatchResponse = c.PartialBatchResponse
	config.ResourceName = c.ResourceName
	config.SecretKey = c.SecretKey
	config.LogBackend = c.LogBackend
	config.ShutdownTimeout = time.Duration(c.ShutdownTimeout.Duration)
}
