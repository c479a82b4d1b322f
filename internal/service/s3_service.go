package service

import (
	"context"
	"fmt"
	"internship-auth/config"
	"internship-auth/internal/util"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const maxObjectSize = 1 << 20

// S3Getter : часть *s3.Client, которая нужна для чтения объектов
type S3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Service читает ключи подписи из S3-совместимого хранилища
type S3Service struct {
	client S3Getter
}

func NewS3Service(ctx context.Context, cfg *config.S3Config) (*S3Service, error) {
	var client *s3.Client

	if cfg.Local {
		client = s3.New(s3.Options{
			Region: cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				"minioadmin",
				"minioadmin",
				"",
			),
			BaseEndpoint: aws.String(cfg.Endpoint),
			UsePathStyle: true,
		})
	} else {
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, util.LogError("[S3Service] ошибка загрузки AWS config", err)
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
	}

	return NewS3ServiceWithClient(client), nil
}

func NewS3ServiceWithClient(client S3Getter) *S3Service {
	return &S3Service{client: client}
}

// ReadObject : читает объект целиком (не больше 1 МиБ)
func (s *S3Service) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, util.LogError(fmt.Sprintf("[S3Service] не удалось получить объект %s/%s", bucket, key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxObjectSize+1))
	if err != nil {
		return nil, util.LogError("[S3Service] ошибка чтения объекта", err)
	}
	if len(data) > maxObjectSize {
		return nil, fmt.Errorf("[S3Service] объект %s/%s слишком большой", bucket, key)
	}

	return data, nil
}
