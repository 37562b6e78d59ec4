package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	log "github.com/sirupsen/logrus"
)

// InvoiceStore 把月度账单归档到 S3 兼容对象存储。
// 每份报表写两个对象：当前版本和带时间戳的归档版本。
type InvoiceStore struct {
	Bucket string
	s3     s3iface.S3API
}

// NewInvoiceStore 连接 S3 兼容端点（留空 endpoint 即 AWS 官方）
func NewInvoiceStore(endpoint, region, bucket, keyID, secret string) (*InvoiceStore, error) {
	cfg := aws.NewConfig().
		WithRegion(region).
		WithCredentials(credentials.NewStaticCredentials(keyID, secret, ""))
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint)
	}

	awsSession, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create S3 session: %w", err)
	}
	return &InvoiceStore{
		Bucket: bucket,
		s3:     s3.New(awsSession),
	}, nil
}

// invoicePrefix 月度账单在桶内的目录
func invoicePrefix(invoiceMonth string) string {
	return path.Join("Invoices", invoiceMonth)
}

// UploadReport 上传一份报表：当前版本放账期目录下，
// 归档版本追加时间戳放 Archive 子目录
func (s *InvoiceStore) UploadReport(invoiceMonth, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("storage: read report %s: %w", localPath, err)
	}

	name := filepath.Base(localPath)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	timestamp := time.Now().UTC().Format(time.RFC3339)

	current := path.Join(invoicePrefix(invoiceMonth), name)
	archive := path.Join(invoicePrefix(invoiceMonth), "Archive", fmt.Sprintf("%s %s%s", stem, timestamp, ext))

	for _, key := range []string{current, archive} {
		_, err := s.s3.PutObject(&s3.PutObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return fmt.Errorf("storage: upload 's3://%s/%s': %w", s.Bucket, key, err)
		}
		log.Infof("storage: uploaded s3://%s/%s", s.Bucket, key)
	}
	return nil
}

// FetchSourceInvoices 拉取账期的原始账单到本地目录，返回下载的文件路径
func (s *InvoiceStore) FetchSourceInvoices(invoiceMonth, destDir string) ([]string, error) {
	prefix := path.Join(invoicePrefix(invoiceMonth), "Service Invoices") + "/"

	list, err := s.s3.ListObjectsV2(&s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list 's3://%s/%s': %w", s.Bucket, prefix, err)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("storage: create download dir: %w", err)
	}

	var files []string
	for _, obj := range list.Contents {
		key := aws.StringValue(obj.Key)
		if !strings.HasSuffix(key, ".csv") {
			continue
		}

		out, err := s.s3.GetObject(&s3.GetObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("storage: retrieve 's3://%s/%s': %w", s.Bucket, key, err)
		}

		local := filepath.Join(destDir, filepath.Base(key))
		f, err := os.Create(local)
		if err != nil {
			out.Body.Close()
			return nil, fmt.Errorf("storage: create %s: %w", local, err)
		}
		if _, err := io.Copy(f, out.Body); err != nil {
			f.Close()
			out.Body.Close()
			return nil, fmt.Errorf("storage: download 's3://%s/%s': %w", s.Bucket, key, err)
		}
		f.Close()
		out.Body.Close()

		log.Infof("storage: fetched s3://%s/%s", s.Bucket, key)
		files = append(files, local)
	}
	return files, nil
}
