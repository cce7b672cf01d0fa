package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store drivers understood by database.Open.
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
	StoreRedis  = "redis"
)

type Config struct {
	// Record store
	StoreDriver string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret    string
	JWTExpiresIn time.Duration

	// Administrator credential
	AdminUsername string
	AdminPassword string

	// School
	SchoolName   string
	AcademicYear string
	SemesterFee  decimal.Decimal

	// AWS S3
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3BucketName       string
	BackupPrefix       string

	// Gemini
	GeminiAPIKey   string
	GeminiModel    string
	GeminiEndpoint string
	GeminiTimeout  time.Duration

	// LINE
	LineChannelSecret string
	LineChannelToken  string
	LineGroupID       string

	// Scheduler
	BackupCron          string
	DefaulterDigestCron string

	// Server
	Port   string
	AppEnv string

	// File Upload
	MaxFileSize int64

	// Logging
	LogLevel string
	LogFile  string

	// Feature Toggles
	UseRedisNotifications bool
	SkipMigrate           bool
	SeedDemoData          bool
}

func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local"
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// BackupsEnabled reports whether S3 backups can run.
func (c *Config) BackupsEnabled() bool {
	return strings.TrimSpace(c.S3BucketName) != "" && strings.TrimSpace(c.AWSRegion) != ""
}

// LineEnabled reports whether LINE credentials are present.
func (c *Config) LineEnabled() bool {
	return c.LineChannelSecret != "" && c.LineChannelToken != ""
}

var AppConfig *Config

func LoadConfig() {
	useSSM := getEnv("USE_SSM", "false") == "true"

	var (
		ssmClient *ssm.SSM
		paramMap  map[string]string
	)

	// Stage & base path for SSM
	basePath := getEnv("SSM_BASE_PATH", "/udaan")
	stage := getEnv("STAGE", getEnv("APP_ENV", "production"))
	basePath = strings.TrimRight(basePath, "/")
	prefix := basePath + "/" + stage

	if useSSM {
		sess, err := session.NewSession(&aws.Config{Region: aws.String(getEnv("AWS_REGION", "ap-south-1"))})
		if err != nil {
			logrus.WithError(err).Fatal("Failed to create AWS session")
		}
		ssmClient = ssm.New(sess)
		logrus.Infof("Using AWS SSM Parameter Store (prefix=%s)", prefix)
		paramMap = fetchSSMParameters(ssmClient, prefix)
	} else {
		if err := godotenv.Load(); err != nil {
			logrus.Warn(".env file not found, using environment variables")
		}
	}

	getVal := func(key, def string) string {
		if useSSM {
			uk := strings.ToUpper(key)
			if v, ok := paramMap[uk]; ok && v != "" {
				return v
			}
		}
		return getEnv(strings.ToUpper(key), def)
	}

	jwtExpires, err := parseDurationShorthand(getVal("JWT_EXPIRES_IN", "24h"))
	if err != nil {
		logrus.WithError(err).Fatal("Invalid JWT_EXPIRES_IN format")
	}

	geminiTimeout, err := parseDurationShorthand(getVal("GEMINI_TIMEOUT", "30s"))
	if err != nil {
		logrus.WithError(err).Fatal("Invalid GEMINI_TIMEOUT format")
	}

	maxFileSize, err := strconv.ParseInt(getVal("MAX_FILE_SIZE", "10485760"), 10, 64)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid MAX_FILE_SIZE format")
	}

	fee, err := decimal.NewFromString(getVal("SEMESTER_FEE", "11000"))
	if err != nil || !fee.IsPositive() {
		logrus.WithField("value", getVal("SEMESTER_FEE", "11000")).Fatal("SEMESTER_FEE must be a positive number")
	}

	redisDB, err := strconv.Atoi(getVal("REDIS_DB", "0"))
	if err != nil {
		logrus.WithError(err).Fatal("Invalid REDIS_DB format")
	}

	AppConfig = &Config{
		StoreDriver: strings.ToLower(getVal("STORE_DRIVER", StoreMySQL)),

		DBHost:     getVal("DB_HOST", "localhost"),
		DBPort:     getVal("DB_PORT", "3306"),
		DBUser:     getVal("DB_USER", "root"),
		DBPassword: getVal("DB_PASSWORD", ""),
		DBName:     getVal("DB_NAME", "udaan"),

		RedisHost:     getVal("REDIS_HOST", "localhost"),
		RedisPort:     getVal("REDIS_PORT", "6379"),
		RedisPassword: getVal("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		JWTSecret:    getVal("JWT_SECRET", "your_super_secret_jwt_key"),
		JWTExpiresIn: jwtExpires,

		AdminUsername: getVal("ADMIN_USERNAME", "admin"),
		AdminPassword: getVal("ADMIN_PASSWORD", "1234"),

		SchoolName:   getVal("SCHOOL_NAME", "Udaan Vidhyalay"),
		AcademicYear: getVal("ACADEMIC_YEAR", "2023-2024"),
		SemesterFee:  fee,

		AWSRegion:          getVal("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:     getVal("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getVal("AWS_SECRET_ACCESS_KEY", ""),
		S3BucketName:       getVal("S3_BUCKET_NAME", ""),
		BackupPrefix:       getVal("BACKUP_PREFIX", "backups"),

		GeminiAPIKey:   getVal("GEMINI_API_KEY", getVal("API_KEY", "")),
		GeminiModel:    getVal("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiEndpoint: getVal("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiTimeout:  geminiTimeout,

		LineChannelSecret: getVal("LINE_CHANNEL_SECRET", ""),
		LineChannelToken:  getVal("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LineGroupID:       getVal("LINE_GROUP_ID", ""),

		BackupCron:          getVal("BACKUP_CRON", "0 2 * * *"),
		DefaulterDigestCron: getVal("DEFAULTER_DIGEST_CRON", "0 9 * * 1"),

		Port:   getVal("PORT", "3000"),
		AppEnv: getVal("APP_ENV", "development"),

		MaxFileSize: maxFileSize,

		LogLevel: getVal("LOG_LEVEL", "info"),
		LogFile:  getVal("LOG_FILE", "logs/app.log"),

		UseRedisNotifications: strings.ToLower(getVal("USE_REDIS_NOTIFICATIONS", "false")) == "true",
		SkipMigrate:           strings.ToLower(getVal("SKIP_MIGRATE", "false")) == "true",
		SeedDemoData:          strings.ToLower(getVal("SEED_DEMO_DATA", "false")) == "true",
	}

	validateConfig(AppConfig, useSSM)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDurationShorthand accepts Go durations plus "7d" and "2w".
func parseDurationShorthand(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err == nil {
		return d, nil
	}
	s := strings.TrimSpace(strings.ToLower(raw))
	if len(s) > 1 {
		unit := s[len(s)-1]
		if n, err2 := strconv.Atoi(s[:len(s)-1]); err2 == nil {
			switch unit {
			case 'd':
				return time.Duration(n) * 24 * time.Hour, nil
			case 'w':
				return time.Duration(n*7) * 24 * time.Hour, nil
			}
		}
	}
	return 0, err
}

// fetchSSMParameters reads all parameters under prefix and returns map with UPPERCASE keys.
func fetchSSMParameters(client *ssm.SSM, prefix string) map[string]string {
	out := make(map[string]string)
	next := aws.String("")
	for {
		in := &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			WithDecryption: aws.Bool(true),
			Recursive:      aws.Bool(true),
		}
		if *next != "" {
			in.NextToken = next
		}
		resp, err := client.GetParametersByPath(in)
		if err != nil {
			logrus.WithError(err).Warnf("unable to fetch SSM parameters for prefix %s", prefix)
			break
		}
		for _, p := range resp.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			name := *p.Name
			key := name
			if idx := strings.LastIndex(name, "/"); idx >= 0 {
				key = name[idx+1:]
			}
			if key == "" {
				continue
			}
			out[strings.ToUpper(key)] = *p.Value
		}
		if resp.NextToken == nil || *resp.NextToken == "" {
			break
		}
		next = resp.NextToken
	}
	return out
}

func validateConfig(c *Config, usedSSM bool) {
	switch c.StoreDriver {
	case StoreMemory, StoreMySQL, StoreRedis:
	default:
		logrus.Fatalf("Unknown STORE_DRIVER %q (memory, mysql, redis)", c.StoreDriver)
	}

	if strings.ToLower(c.AppEnv) != "production" {
		return
	}
	required := map[string]string{
		"JWT_SECRET":     c.JWTSecret,
		"ADMIN_PASSWORD": c.AdminPassword,
	}
	if c.StoreDriver == StoreMySQL {
		required["DB_PASSWORD"] = c.DBPassword
	}
	for k, v := range required {
		if strings.TrimSpace(v) == "" {
			logrus.Fatalf("Missing required secret %s in production (SSM=%v)", k, usedSSM)
		}
	}
	if len(c.JWTSecret) < 16 {
		logrus.Fatal("JWT_SECRET too short (min 16 chars)")
	}
	if c.StoreDriver == StoreMemory {
		logrus.Fatal("STORE_DRIVER=memory is not allowed in production")
	}
	if c.AdminPassword == "1234" {
		logrus.Fatal("ADMIN_PASSWORD still uses the default value")
	}
}
