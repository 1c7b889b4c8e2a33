package config

import (
	"fmt"
	"os"
)

// APIConfig holds everything the campaign-api process needs.
type APIConfig struct {
	Port   string
	DBDSN  string
	RMQURL string
	Queue  string
}

// WorkerConfig holds everything the campaign-worker process needs.
type WorkerConfig struct {
	DBDSN         string
	RMQURL        string
	Queue         string
	ProfileDir    string
	ScreenshotDir string
	MetricsPort   string
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func requireEnv(k string) (string, error) {
	v := os.Getenv(k)
	if v == "" {
		return "", fmt.Errorf("required env %s is not set", k)
	}
	return v, nil
}

func LoadAPI() (APIConfig, error) {
	dsn, err := requireEnv("DB_DSN")
	if err != nil {
		return APIConfig{}, err
	}
	rmq, err := requireEnv("RMQ_URL")
	if err != nil {
		return APIConfig{}, err
	}
	return APIConfig{
		Port:   getenv("PORT", "8080"),
		DBDSN:  dsn,
		RMQURL: rmq,
		Queue:  getenv("QUEUE", "campaign_jobs"),
	}, nil
}

func LoadWorker() (WorkerConfig, error) {
	dsn, err := requireEnv("DB_DSN")
	if err != nil {
		return WorkerConfig{}, err
	}
	rmq, err := requireEnv("RMQ_URL")
	if err != nil {
		return WorkerConfig{}, err
	}
	return WorkerConfig{
		DBDSN:         dsn,
		RMQURL:        rmq,
		Queue:         getenv("QUEUE", "campaign_jobs"),
		ProfileDir:    getenv("PROFILE_DIR", "/var/data/chrome_session"),
		ScreenshotDir: getenv("SCREENSHOT_DIR", "."),
		MetricsPort:   getenv("METRICS_PORT", "9091"),
	}, nil
}
