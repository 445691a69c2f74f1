package initializers

import (
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"

	"visa-interview-backend/config"
	filestorage "visa-interview-backend/lib/file-storage"
)

func InitS3(ctx context.Context) {
	minioClient, err := minio.New(config.Conf.S3.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Conf.S3.AccessKeyID, config.Conf.S3.SecretAccessKey, ""),
		Secure: *config.Conf.S3.UseSSL,
	})
	if err != nil {
		log.WithError(err).Error("Ошибка инициализации клиента S3")
		return
	}

	filestorage.NewInstance(minioClient)
	if err = filestorage.Instance.MakeBucket(ctx); err != nil {
		log.WithError(err).Error("Ошибка создания bucket для аудио ответов")
		return
	}
	log.Info("S3 клиент успешно инициализирован")
}
