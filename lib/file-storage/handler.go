package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"visa-interview-backend/config"
)

// Provider — архив аудио ответов кандидата в S3;
// недоступность хранилища не прерывает интервью
type Provider interface {
	UploadAnswerAudio(ctx context.Context, sessionID string, questionNumber int, audio []byte) error
	GetAnswerAudio(ctx context.Context, sessionID string, questionNumber int) ([]byte, error)
	MakeBucket(ctx context.Context) error
}

var Instance Provider

func NewInstance(s3client *minio.Client) {
	Instance = &impl{
		s3client: s3client,
	}
}

type impl struct {
	s3client *minio.Client
}

func (i impl) UploadAnswerAudio(ctx context.Context, sessionID string, questionNumber int, audio []byte) error {
	objectName := i.getObjectName(sessionID, questionNumber)
	_, err := i.s3client.PutObject(ctx, config.Conf.S3.BucketName, objectName,
		bytes.NewReader(audio), int64(len(audio)),
		minio.PutObjectOptions{ContentType: "audio/wav"})
	if err != nil {
		return err
	}
	return nil
}

func (i impl) GetAnswerAudio(ctx context.Context, sessionID string, questionNumber int) ([]byte, error) {
	objectName := i.getObjectName(sessionID, questionNumber)
	obj, err := i.s3client.GetObject(ctx, config.Conf.S3.BucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (i impl) MakeBucket(ctx context.Context) error {
	bucketName := config.Conf.S3.BucketName
	location := "us-east-1"
	exists, err := i.s3client.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = i.s3client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location})
	if err != nil {
		return err
	}
	return nil
}

func (i impl) getObjectName(sessionID string, questionNumber int) string {
	return fmt.Sprintf("%s/answer-%d.wav", sessionID, questionNumber)
}
