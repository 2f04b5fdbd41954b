package s3

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/safedrive/safedrive-engine/pkg/remote"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// metaCreatedAt is the S3 user-metadata key holding a session's creation
// time, since S3 doesn't expose custom object creation timestamps.
const metaCreatedAt = "safedrive-created-at"

// RegisterSession records the name a subsequent FinishSession call for this
// (token, folder) pair will commit under. The remote.Store contract doesn't
// thread a session name through FinishSession itself, so it must be
// remembered from registration, same as the upstream API's two-phase
// register/finish handshake.
func (s *Store) RegisterSession(ctx context.Context, token remote.Token, folderID, name string, encrypted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingSessions[pendingKey(token, folderID)] = name
	return nil
}

// FinishSession uploads the wrapped session bytes under its registered
// name, stamped with the current time so ListSessions can report it.
func (s *Store) FinishSession(ctx context.Context, token remote.Token, folderID string, size int64, wrappedSession []byte, encrypted bool) error {
	s.mu.Lock()
	name := s.pendingSessions[pendingKey(token, folderID)]
	delete(s.pendingSessions, pendingKey(token, folderID))
	s.mu.Unlock()
	if name == "" {
		return secerr.New(secerr.KindInternal, "finish_session", fmt.Errorf("no session registered for folder %s", folderID))
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.sessionKeyForToken(token, folderID, name)),
		Body:   bytes.NewReader(wrappedSession),
		Metadata: map[string]string{
			metaCreatedAt: strconv.FormatInt(time.Now().Unix(), 10),
		},
	})
	if err != nil {
		return classify("finish_session", err)
	}
	return nil
}

func pendingKey(token remote.Token, folderID string) string {
	return string(token) + "/" + folderID
}

// ReadSession fetches one session's wrapped bytes by name.
func (s *Store) ReadSession(ctx context.Context, token remote.Token, folderID, name string, encrypted bool) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.sessionKeyForToken(token, folderID, name)),
	})
	if err != nil {
		return nil, classify("read_session", err)
	}
	defer resp.Body.Close()
	data := make([]byte, 0)
	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		data = append(data, buf[:n]...)
		if rerr != nil {
			break
		}
	}
	return data, nil
}

// ListSessions enumerates every session across every folder registered
// under token, grouped by folder id.
func (s *Store) ListSessions(ctx context.Context, token remote.Token) (map[string][]remote.SessionInfo, error) {
	prefix := s.prefix + "sessions/" + string(token) + "/"
	result := make(map[string][]remote.SessionInfo)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list_sessions", err)
		}
		for _, obj := range page.Contents {
			folderID, name, ok := splitSessionKey(prefix, *obj.Key)
			if !ok {
				continue
			}
			head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			createdAt := time.Time{}
			if err == nil {
				if ts, ok := head.Metadata[metaCreatedAt]; ok {
					if unix, perr := strconv.ParseInt(ts, 10, 64); perr == nil {
						createdAt = time.Unix(unix, 0)
					}
				}
			}
			result[folderID] = append(result[folderID], remote.SessionInfo{
				ID:   name,
				Name: name,
				Size: aws.ToInt64(obj.Size),
				Time: createdAt,
			})
		}
	}
	return result, nil
}

// DeleteSession removes a session by id across all folders under token
// (the remote.Store contract identifies a session by id alone).
func (s *Store) DeleteSession(ctx context.Context, token remote.Token, id string) error {
	sessions, err := s.ListSessions(ctx, token)
	if err != nil {
		return err
	}
	for folderID, infos := range sessions {
		for _, info := range infos {
			if info.ID != id {
				continue
			}
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(s.sessionKeyForToken(token, folderID, info.Name)),
			})
			if err != nil {
				return classify("delete_session", err)
			}
			return nil
		}
	}
	return nil
}

// DeleteSessionsBefore removes every session older than beforeUnixMillis
// across all folders under token.
func (s *Store) DeleteSessionsBefore(ctx context.Context, token remote.Token, beforeUnixMillis int64) error {
	sessions, err := s.ListSessions(ctx, token)
	if err != nil {
		return err
	}
	cutoff := time.UnixMilli(beforeUnixMillis)
	for folderID, infos := range sessions {
		for _, info := range infos {
			if info.Time.After(cutoff) {
				continue
			}
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(s.sessionKeyForToken(token, folderID, info.Name)),
			})
			if err != nil {
				return classify("delete_sessions_before", err)
			}
		}
	}
	return nil
}

func (s *Store) sessionKeyForToken(token remote.Token, folderID, name string) string {
	return s.prefix + "sessions/" + string(token) + "/" + folderID + "/" + name
}

func splitSessionKey(prefix, key string) (folderID, name string, ok bool) {
	rest := key[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:], true
		}
	}
	return "", "", false
}
