package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	// HTTP API Configuration
	HTTPAddr string

	// MQTT Configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// MQTT topics
	MQTTTopicBehavior string // collar gateways publish snapshots here
	MQTTTopicAlert    string // abnormal-behavior alerts are published here

	// ClickHouse Configuration
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// Redis Configuration (latest-report cache)
	RedisAddr          string
	RedisMaxConns      int
	ReportCacheTTLSecs int

	// Model server (disease detection / severity / treatment)
	ModelServerURL         string
	ModelServerTimeoutSecs int

	// Behavior data collection
	CollectionIntervalMinutes float64 // snapshot cadence from the collars
	BaselineDays              int     // history needed for an individual baseline
	BaselineDensityFactor     float64 // fraction of the nominal point count required

	// Behavior analysis
	MinHoursForAnalysis  float64
	RecommendedHours     float64
	AnalysisWindowHours  float64
	MonitorIntervalSecs  int

	// Deviation thresholds (relative, except temperature which is °C)
	EatingDeviationThreshold     float64
	LyingDeviationThreshold      float64
	StepsDeviationThreshold      float64
	RuminationDeviationThreshold float64
	TemperatureDeviationCelsius  float64

	// Population norms, used when a subject has no individual baseline
	PopulationEatingMinutes     float64
	PopulationLyingFraction     float64
	PopulationStepsPerHour      float64
	PopulationRuminationMinutes float64
	PopulationTemperatureC      float64
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		// HTTP API Configuration
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		// MQTT Configuration
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "herd-backend"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		// MQTT topics
		MQTTTopicBehavior: getEnv("MQTT_TOPIC_BEHAVIOR", "herd/+/behavior"),
		MQTTTopicAlert:    getEnv("MQTT_TOPIC_ALERT", "herd/alerts/{subject_id}"),

		// ClickHouse Configuration
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "herd"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		// Redis Configuration
		RedisAddr:          getEnv("REDIS_ADDR", ":6379"),
		RedisMaxConns:      getEnvInt("REDIS_MAX_CONNECTIONS", 50),
		ReportCacheTTLSecs: getEnvInt("REPORT_CACHE_TTL_SECONDS", 3600),

		// Model server
		ModelServerURL:         getEnv("MODEL_SERVER_URL", "http://localhost:5000"),
		ModelServerTimeoutSecs: getEnvInt("MODEL_SERVER_TIMEOUT_SECONDS", 30),

		// Behavior data collection
		CollectionIntervalMinutes: getEnvFloat("COLLECTION_INTERVAL_MINUTES", 30),
		BaselineDays:              getEnvInt("BASELINE_DAYS", 7),
		BaselineDensityFactor:     getEnvFloat("BASELINE_DENSITY_FACTOR", 1.0),

		// Behavior analysis
		MinHoursForAnalysis: getEnvFloat("MIN_HOURS_FOR_ANALYSIS", 12),
		RecommendedHours:    getEnvFloat("RECOMMENDED_HOURS", 24),
		AnalysisWindowHours: getEnvFloat("ANALYSIS_WINDOW_HOURS", 24),
		MonitorIntervalSecs: getEnvInt("MONITOR_INTERVAL_SECONDS", 1800),

		// Deviation thresholds
		EatingDeviationThreshold:     getEnvFloat("EATING_DEVIATION_THRESHOLD", 0.30),
		LyingDeviationThreshold:      getEnvFloat("LYING_DEVIATION_THRESHOLD", 0.25),
		StepsDeviationThreshold:      getEnvFloat("STEPS_DEVIATION_THRESHOLD", 0.35),
		RuminationDeviationThreshold: getEnvFloat("RUMINATION_DEVIATION_THRESHOLD", 0.30),
		TemperatureDeviationCelsius:  getEnvFloat("TEMPERATURE_DEVIATION_CELSIUS", 0.5),

		// Population norms
		PopulationEatingMinutes:     getEnvFloat("POPULATION_EATING_MINUTES", 10),
		PopulationLyingFraction:     getEnvFloat("POPULATION_LYING_FRACTION", 0.5),
		PopulationStepsPerHour:      getEnvFloat("POPULATION_STEPS_PER_HOUR", 180),
		PopulationRuminationMinutes: getEnvFloat("POPULATION_RUMINATION_MINUTES", 20),
		PopulationTemperatureC:      getEnvFloat("POPULATION_TEMPERATURE_C", 38.5),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}
