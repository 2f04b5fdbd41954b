package s3

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/safedrive/safedrive-engine/pkg/remote"
)

// CheckBlock reports whether a block object already exists.
func (s *Store) CheckBlock(ctx context.Context, token remote.Token, hmacHex string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.blockKey(hmacHex)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFoundError(err) {
		return false, nil
	}
	return false, classify("check_block", err)
}

// WriteBlocks uploads each block the server doesn't already have, returning
// the HMACs of any that still failed to land (so the caller's batch flush
// can retry just those).
func (s *Store) WriteBlocks(ctx context.Context, token remote.Token, session string, blocks []remote.BlockUpload) ([]string, error) {
	var missing []string
	for _, b := range blocks {
		exists, err := s.CheckBlock(ctx, token, b.HMACHex)
		if err != nil {
			return missing, err
		}
		if exists {
			continue
		}
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.blockKey(b.HMACHex)),
			Body:   bytes.NewReader(b.Data),
		})
		if err != nil {
			missing = append(missing, b.HMACHex)
			continue
		}
	}
	return missing, nil
}

// ReadBlock fetches one block's wire bytes by content address.
func (s *Store) ReadBlock(ctx context.Context, token remote.Token, hmacHex string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.blockKey(hmacHex)),
	})
	if err != nil {
		return nil, classify("read_block", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify("read_block", err)
	}
	return data, nil
}
