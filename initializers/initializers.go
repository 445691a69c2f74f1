package initializers

import (
	"context"

	"visa-interview-backend/config"
	"visa-interview-backend/fiberlog"
	xlsexport "visa-interview-backend/lib/export/xls"
	gpthandler "visa-interview-backend/lib/gpt"
	interviewhandler "visa-interview-backend/lib/interview"
	interviewjanitor "visa-interview-backend/lib/interview/janitor"
	stthandler "visa-interview-backend/lib/speech/stt"
	ttshandler "visa-interview-backend/lib/speech/tts"
	"visa-interview-backend/lib/utils/lock"
	connectionhub "visa-interview-backend/lib/ws/hub/connection-hub"
)

var LoggerConfig *fiberlog.Config

func InitAllServices(ctx context.Context) {
	LoggerConfig = InitLogger()
	config.InitConfig()
	if *config.Conf.Database.Enabled {
		InitDBConnection()
	}
	if *config.Conf.S3.Enabled {
		InitS3(ctx)
	}
	connectionhub.Init()
	lock.InitResourceLock(ctx)
	gpthandler.NewHandler()
	if config.Conf.Speech.SttURL != "" {
		stthandler.NewHandler(config.Conf.Speech.SttURL)
	}
	if config.Conf.Speech.TtsURL != "" {
		ttshandler.NewHandler(config.Conf.Speech.TtsURL)
	}
	xlsexport.NewHandler()
	interviewhandler.NewHandler(ctx)
	go initWorkers(ctx)
}

func initWorkers(ctx context.Context) {
	// Задача вытеснения завершенных сессий интервью из реестра
	interviewjanitor.StartWorker(ctx, interviewhandler.Instance.Registry())
}
