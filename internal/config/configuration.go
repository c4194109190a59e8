package config

import (
	"encoding/json"
	"fmt"
	"os"
)

const ConfigurationTemplate = `{
  "data_directory_path": "./data",
  "log_directory_path": "./logs",
  "server_port": 8080,
  "admin_port": 8081,
  "maximum_connection_count": 50000,
  "worker_count": 8,
  "scan_result_limit": 1000,
  "checkpoint_interval_in_seconds": 0,
  "authentication_secret": "CHANGE_ME",
  "enable_admin_api": true,
  "maximum_cpu_count": 0,
  "log_severity_level": "INFO"
}`

const (
	DefaultServerPort             = 8080
	DefaultAdminPort              = 8081
	DefaultMaximumConnectionCount = 50000
	DefaultWorkerCount            = 8
	DefaultScanResultLimit        = 1000
)

type SystemConfiguration struct {
	DataDirectoryPath           string `json:"data_directory_path"`
	LogDirectoryPath            string `json:"log_directory_path"`
	ServerPort                  int    `json:"server_port"`
	AdminPort                   int    `json:"admin_port"`
	MaximumConnectionCount      int    `json:"maximum_connection_count"`
	WorkerCount                 int    `json:"worker_count"`
	ScanResultLimit             int    `json:"scan_result_limit"`
	CheckpointIntervalInSeconds int    `json:"checkpoint_interval_in_seconds"`
	AuthenticationToken         string `json:"authentication_token"`
	AuthenticationSecret        string `json:"authentication_secret"`
	EnableAdminApi              bool   `json:"enable_admin_api"`
	MaximumCpuCount             int    `json:"maximum_cpu_count"`
	LogSeverityLevel            string `json:"log_severity_level"`
}

func LoadConfigurationFromFile(filePath string) (SystemConfiguration, error) {
	config := SystemConfiguration{
		DataDirectoryPath:      "./data",
		LogDirectoryPath:       "./logs",
		ServerPort:             DefaultServerPort,
		AdminPort:              DefaultAdminPort,
		MaximumConnectionCount: DefaultMaximumConnectionCount,
		WorkerCount:            DefaultWorkerCount,
		ScanResultLimit:        DefaultScanResultLimit,
		AuthenticationSecret:   "DEFAULT_SECRET_CHANGE_ME_IN_PROD",
		EnableAdminApi:         true,
		MaximumCpuCount:        0,
		LogSeverityLevel:       "INFO",
	}

	if filePath != "" {
		file, err := os.Open(filePath)
		if err != nil {
			return config, fmt.Errorf("failed to open configuration file: %w", err)
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return config, fmt.Errorf("failed to decode configuration json: %w", err)
		}
	}
	return config, nil
}
