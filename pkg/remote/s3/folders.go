package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/safedrive/safedrive-engine/pkg/remote"
)

// folderRecord is a folder's JSON-serialized form; scoped under a token so
// folders from distinct accounts never collide in a shared bucket.
type folderRecord struct {
	remote.Folder
	Token string `json:"token"`
}

func (s *Store) folderKey(token remote.Token, id string) string {
	return s.prefix + "folders/" + string(token) + "/" + id
}

// CreateFolder registers a new folder and returns its generated id.
func (s *Store) CreateFolder(ctx context.Context, token remote.Token, path, name string, encrypted bool) (string, error) {
	id := uuid.NewString()
	rec := folderRecord{
		Folder: remote.Folder{ID: id, Name: name, Path: path, Encrypted: encrypted},
		Token:  string(token),
	}
	if err := s.putJSON(ctx, s.folderKey(token, id), rec); err != nil {
		return "", classify("create_folder", err)
	}
	return id, nil
}

// UpdateFolder rewrites an existing folder's mutable fields.
func (s *Store) UpdateFolder(ctx context.Context, token remote.Token, path, name string, syncing bool, id string) error {
	var rec folderRecord
	if err := s.getJSON(ctx, s.folderKey(token, id), &rec); err != nil {
		return classify("update_folder", err)
	}
	rec.Path, rec.Name, rec.Syncing = path, name, syncing
	if err := s.putJSON(ctx, s.folderKey(token, id), rec); err != nil {
		return classify("update_folder", err)
	}
	return nil
}

// DeleteFolder removes a folder record.
func (s *Store) DeleteFolder(ctx context.Context, token remote.Token, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.folderKey(token, id)),
	})
	if err != nil {
		return classify("delete_folder", err)
	}
	return nil
}

// ListFolders enumerates every folder registered under token.
func (s *Store) ListFolders(ctx context.Context, token remote.Token) ([]remote.Folder, error) {
	prefix := s.prefix + "folders/" + string(token) + "/"
	var folders []remote.Folder

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list_folders", err)
		}
		for _, obj := range page.Contents {
			var rec folderRecord
			if err := s.getJSONKey(ctx, *obj.Key, &rec); err != nil {
				continue
			}
			folders = append(folders, rec.Folder)
		}
	}
	return folders, nil
}

// putJSON marshals v and stores it at key.
func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	return err
}

// getJSON fetches and unmarshals the object at key into v.
func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	return s.getJSONKey(ctx, key, v)
}

func (s *Store) getJSONKey(ctx context.Context, key string, v any) error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
