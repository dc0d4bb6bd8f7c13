package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
	} `yaml:"server"`

	BackgroundTasks struct {
		MaxWorkers      int           `yaml:"max_workers" default:"4"`
		QueueSize       int           `yaml:"queue_size" default:"100"`
		TaskTimeout     time.Duration `yaml:"task_timeout" default:"300s"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1h"`
		MaxTaskAge      time.Duration `yaml:"max_task_age" default:"24h"`
	} `yaml:"background_tasks"`

	LLM struct {
		Provider    string        `yaml:"provider" default:"claude"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model" default:"claude-3-haiku-20240307"`
		MaxTokens   int           `yaml:"max_tokens" default:"2048"`
		Temperature float32       `yaml:"temperature" default:"0.1"`
		Timeout     time.Duration `yaml:"timeout" default:"60s"`
		RateLimit   int           `yaml:"rate_limit" default:"60"` // agent calls per minute
	} `yaml:"llm"`

	Matcher struct {
		Weights struct {
			Education      float64 `yaml:"education" default:"0.20"`
			Experience     float64 `yaml:"experience" default:"0.40"`
			Projects       float64 `yaml:"projects" default:"0.20"`
			Certifications float64 `yaml:"certifications" default:"0.10"`
			Skills         float64 `yaml:"skills" default:"0.10"`
		} `yaml:"weights"`

		// Role-title fuzzy matching constants. Empirically tuned; change
		// only with product sign-off.
		RoleThreshold       float64  `yaml:"role_threshold" default:"40.0"`
		OrderBonus          float64  `yaml:"order_bonus" default:"20.0"`
		CommonOverlapScore  float64  `yaml:"common_overlap_score" default:"15.0"`
		LengthPenaltyWeight float64  `yaml:"length_penalty_weight" default:"10.0"`
		GenericTitleWords   []string `yaml:"generic_title_words"`
	} `yaml:"matcher"`

	Vocabulary struct {
		Path string `yaml:"path" default:"data/job_skills.csv"`
	} `yaml:"vocabulary"`

	Storage struct {
		Endpoint        string `yaml:"endpoint"`
		Region          string `yaml:"region" default:"blr1"`
		BucketName      string `yaml:"bucket_name" default:"talentmatch-cv-store"`
		AccessKeyID     string `yaml:"access_key_id"`
		AccessKeySecret string `yaml:"access_key_secret"`

		Retry struct {
			MaxRetries    int           `yaml:"max_retries" default:"3"`
			InitialDelay  time.Duration `yaml:"initial_delay" default:"500ms"`
			BackoffFactor float64       `yaml:"backoff_factor" default:"2.0"`
		} `yaml:"retry"`
	} `yaml:"storage"`

	Redis struct {
		URL      string        `yaml:"url" default:"redis://localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`
}

// DefaultGenericTitleWords is the stop-set of generic job-title words ignored
// when matching roles against the canonical title vocabulary. Curated, not
// derived.
var DefaultGenericTitleWords = []string{
	"engineer", "developer", "manager", "specialist", "analyst",
	"consultant", "architect", "administrator", "coordinator", "director",
	"lead", "senior", "junior", "entry", "level", "principal", "staff",
}

// ComponentWeights returns the configured component weight table keyed by
// component name
func (c *Config) ComponentWeights() map[string]float64 {
	return map[string]float64{
		"education":      c.Matcher.Weights.Education,
		"experience":     c.Matcher.Weights.Experience,
		"projects":       c.Matcher.Weights.Projects,
		"certifications": c.Matcher.Weights.Certifications,
		"skills":         c.Matcher.Weights.Skills,
	}
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}

	// Set defaults
	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second

	config.BackgroundTasks.MaxWorkers = 4
	config.BackgroundTasks.QueueSize = 100
	config.BackgroundTasks.TaskTimeout = 300 * time.Second
	config.BackgroundTasks.CleanupInterval = 1 * time.Hour
	config.BackgroundTasks.MaxTaskAge = 24 * time.Hour

	config.LLM.Provider = "claude"
	config.LLM.Model = "claude-3-haiku-20240307"
	config.LLM.MaxTokens = 2048
	config.LLM.Temperature = 0.1
	config.LLM.Timeout = 60 * time.Second
	config.LLM.RateLimit = 60

	config.Matcher.Weights.Education = 0.20
	config.Matcher.Weights.Experience = 0.40
	config.Matcher.Weights.Projects = 0.20
	config.Matcher.Weights.Certifications = 0.10
	config.Matcher.Weights.Skills = 0.10

	config.Matcher.RoleThreshold = 40.0
	config.Matcher.OrderBonus = 20.0
	config.Matcher.CommonOverlapScore = 15.0
	config.Matcher.LengthPenaltyWeight = 10.0
	config.Matcher.GenericTitleWords = DefaultGenericTitleWords

	config.Vocabulary.Path = "data/job_skills.csv"

	config.Storage.Region = "blr1"
	config.Storage.BucketName = "talentmatch-cv-store"
	config.Storage.Retry.MaxRetries = 3
	config.Storage.Retry.InitialDelay = 500 * time.Millisecond
	config.Storage.Retry.BackoffFactor = 2.0

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.DB = 0
	config.Redis.Timeout = 5 * time.Second

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		c.LLM.APIKey = apiKey
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}

	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if vocabPath := os.Getenv("VOCABULARY_PATH"); vocabPath != "" {
		c.Vocabulary.Path = vocabPath
	}

	if threshold := os.Getenv("MATCHER_ROLE_THRESHOLD"); threshold != "" {
		if t, err := strconv.ParseFloat(threshold, 64); err == nil {
			c.Matcher.RoleThreshold = t
		}
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	// Object storage configuration
	if endpoint := os.Getenv("BUCKET_ENDPOINT"); endpoint != "" {
		c.Storage.Endpoint = endpoint
	}

	if region := os.Getenv("BUCKET_REGION"); region != "" {
		c.Storage.Region = region
	}

	if bucketName := os.Getenv("BUCKET_NAME"); bucketName != "" {
		c.Storage.BucketName = bucketName
	}

	if accessKeyID := os.Getenv("BUCKET_ACCESS_KEY_ID"); accessKeyID != "" {
		c.Storage.AccessKeyID = accessKeyID
	}

	if accessKeySecret := os.Getenv("BUCKET_ACCESS_KEY_SECRET"); accessKeySecret != "" {
		c.Storage.AccessKeySecret = accessKeySecret
	}

	if maxWorkers := os.Getenv("BACKGROUND_MAX_WORKERS"); maxWorkers != "" {
		if workers, err := strconv.Atoi(maxWorkers); err == nil {
			c.BackgroundTasks.MaxWorkers = workers
		}
	}

	if queueSize := os.Getenv("BACKGROUND_QUEUE_SIZE"); queueSize != "" {
		if size, err := strconv.Atoi(queueSize); err == nil {
			c.BackgroundTasks.QueueSize = size
		}
	}

	if taskTimeout := os.Getenv("BACKGROUND_TASK_TIMEOUT"); taskTimeout != "" {
		if timeout, err := time.ParseDuration(taskTimeout); err == nil {
			c.BackgroundTasks.TaskTimeout = timeout
		}
	}
}
