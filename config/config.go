package config

import (
	"github.com/gotify/configor"
)

var Conf *Configuration

type Configuration struct {
	App struct {
		ListenAddr string `default:"" env:"APP_HOST"`
		Port       int    `default:"8080"  env:"APP_PORT"`
	}
	Database struct {
		Enabled        *bool  `default:"false" env:"DB_ENABLED"`
		Host           string `default:"127.0.0.1" env:"DB_HOST"`
		Port           string `default:"5432" env:"DB_PORT"`
		Name           string `default:"visa-interview" env:"DB_NAME"`
		User           string `default:"postgres" env:"DB_USER"`
		Password       string `default:"postgres" env:"DB_PASSWORD"`
		MigrateOnStart *bool  `default:"true" env:"DB_MIGRATE_ON_START"`
		DebugMode      *bool  `default:"false" env:"DB_DEBUG_MODE"`
	}
	S3 struct {
		Enabled         *bool  `default:"false" env:"S3_ENABLED"`
		Endpoint        string `default:"127.0.0.1:9000" env:"S3_ENDPOINT"`
		AccessKeyID     string `default:"" env:"S3_ACCESS_KEY_ID"`
		SecretAccessKey string `default:"" env:"S3_SECRET_ACCESS_KEY"`
		UseSSL          *bool  `default:"false" env:"S3_USE_SSL"`
		BucketName      string `default:"interview-audio" env:"S3_BUCKET_NAME"`
	}
	AI struct {
		// провайдер генерации текста: ollama | yandex
		Provider string `default:"ollama" env:"AI_PROVIDER"`
		Ollama   struct {
			OllamaURL   string `default:"http://127.0.0.1:11434/api/generate" env:"AI_OLLAMA_URL"`
			OllamaModel string `default:"llama3" env:"AI_OLLAMA_MODEL"`
		}
		YandexGPT struct {
			IAMToken  string `default:"" env:"AI_YAGPT_IAM_TOKEN"`
			CatalogID string `default:"" env:"AI_YAGPT_CATALOG_ID"`
		}
	}
	Speech struct {
		SttURL string `default:"" env:"SPEECH_STT_URL"`
		TtsURL string `default:"" env:"SPEECH_TTS_URL"`
	}
	Interview struct {
		// таймаут ожидания ответа на один вопрос
		AnswerTimeoutSec int `default:"300" env:"INTERVIEW_ANSWER_TIMEOUT_SEC"`
		// границы количества вопросов в запросе на старт
		MinQuestions int `default:"1" env:"INTERVIEW_MIN_QUESTIONS"`
		MaxQuestions int `default:"10" env:"INTERVIEW_MAX_QUESTIONS"`
		// количество вопросов, если не указано в запросе
		DefaultQuestions int `default:"2" env:"INTERVIEW_DEFAULT_QUESTIONS"`
		// время хранения завершенных сессий в реестре
		SessionRetentionMin int `default:"60" env:"INTERVIEW_SESSION_RETENTION_MIN"`
		// период очистки реестра
		EvictionPeriodMin int `default:"5" env:"INTERVIEW_EVICTION_PERIOD_MIN"`
	}
}

func configFiles() []string {
	return []string{"config.yml"}
}

func InitConfig() {
	if Conf != nil {
		return
	}
	conf := new(Configuration)
	err := configor.New(&configor.Config{}).Load(conf, configFiles()...)
	if err != nil {
		panic(err)
	}
	Conf = conf
}
