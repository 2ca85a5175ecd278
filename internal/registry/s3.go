package registry

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/util"
)

const (
	defaultS3Region        = "us-east-1"
	defaultRoleSessionName = "relplan"
)

// S3Lister lists keys of an S3 bucket, or of an S3-compatible store reached through a custom endpoint.
type S3Lister struct {
	client *s3.Client
	bucket string
}

// NewS3Lister wraps an existing client.
func NewS3Lister(client *s3.Client, bucket string) *S3Lister {
	return &S3Lister{client: client, bucket: bucket}
}

// NewS3Client builds an S3 client from the binary store configuration. Static credentials are used when both key
// variables are set in env; otherwise the default AWS credential chain applies. A configured role is assumed
// with whichever credentials were found.
func NewS3Client(ctx context.Context, l log.Logger, cfg *BinaryConfig, env map[string]string) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = env["AWS_REGION"]
	}

	if region == "" {
		region = defaultS3Region
	}

	configOptions := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithAppID(userAgent),
	}

	accessKeyID, secretAccessKey := env[cfg.accessKeyEnv()], env[cfg.secretKeyEnv()]
	if accessKeyID != "" && secretAccessKey != "" {
		l.Debugf("Using static AWS credentials from %s", cfg.accessKeyEnv())

		configOptions = append(configOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, env["AWS_SESSION_TOKEN"]),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, errors.Errorf("Error loading AWS config: %w", err)
	}

	if cfg.RoleARN != "" {
		sessionName := cfg.RoleSessionName
		if sessionName == "" {
			sessionName = defaultRoleSessionName
		}

		l.Debugf("Assuming role %s", cfg.RoleARN)

		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsCfg), cfg.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = sessionName
		})
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}

		o.UsePathStyle = cfg.PathStyle
	}), nil
}

// ListKeys implements ObjectLister.
func (lister *S3Lister) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(lister.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(lister.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyS3Error(err)
		}

		for _, object := range page.Contents {
			keys = append(keys, aws.ToString(object.Key))
		}
	}

	return keys, nil
}

// classifyS3Error marks errors that retrying cannot fix.
func classifyS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return util.FatalError{Underlying: err}
		}
	}

	return errors.New(err)
}
