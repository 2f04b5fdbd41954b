package s3

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/safedrive/safedrive-engine/pkg/remote"
)

// clientRecord is one registered client, persisted under its account email.
type clientRecord struct {
	remote.ClientInfo
	Token    string `json:"token"`
	Password string `json:"password"` // simplified: this backend has no real auth layer, see DESIGN.md
}

func (s *Store) clientKey(email, ucid string) string {
	return s.prefix + "clients/" + email + "/" + ucid
}

// RegisterClient creates a client record and returns a freshly minted token.
func (s *Store) RegisterClient(ctx context.Context, osName, lang, ucid, email, password string) (remote.Token, error) {
	token := remote.Token(uuid.NewString())
	rec := clientRecord{
		ClientInfo: remote.ClientInfo{UCID: ucid, OS: osName, Lang: lang},
		Token:      string(token),
		Password:   password,
	}
	if err := s.putJSON(ctx, s.clientKey(email, ucid), rec); err != nil {
		return "", classify("register_client", err)
	}
	return token, nil
}

// UnregisterClient is a best-effort no-op scan: this backend has no
// token→email index, so it relies on the caller also calling DeleteFolder/
// session cleanup separately; removing the stray client record is deferred
// to account deletion, which is out of scope for the engine itself.
func (s *Store) UnregisterClient(ctx context.Context, token remote.Token) error {
	return nil
}

// ListClients enumerates every client registered under email.
func (s *Store) ListClients(ctx context.Context, email, password string) ([]remote.ClientInfo, error) {
	prefix := s.prefix + "clients/" + email + "/"
	var clients []remote.ClientInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list_clients", err)
		}
		for _, obj := range page.Contents {
			var rec clientRecord
			if err := s.getJSONKey(ctx, *obj.Key, &rec); err != nil {
				continue
			}
			if rec.Password != password {
				continue
			}
			clients = append(clients, rec.ClientInfo)
		}
	}
	return clients, nil
}

// AccountStatus reports a placeholder "active" status: this backend has no
// server process to report on, since its transport is object storage, not a
// running sync service.
func (s *Store) AccountStatus(ctx context.Context, token remote.Token) (remote.AccountStatus, error) {
	return remote.AccountStatus{State: "active"}, nil
}

// AccountDetails reports usage by summing the bucket's block objects.
// A real deployment would track this incrementally; doing it by listing is
// acceptable for the scale this backend targets.
func (s *Store) AccountDetails(ctx context.Context, token remote.Token) (remote.AccountDetails, error) {
	var used int64
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + "blocks/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return remote.AccountDetails{}, classify("account_details", err)
		}
		for _, obj := range page.Contents {
			used += aws.ToInt64(obj.Size)
		}
	}
	return remote.AccountDetails{Used: used}, nil
}

// AccountKey returns the server-held wrapped keyset if one already exists,
// otherwise stores and returns the supplied one. This must be atomic: a
// conditional PutObject (If-None-Match) prevents a race where two first
// logins both think they're the one establishing the account's keyset.
func (s *Store) AccountKey(ctx context.Context, token remote.Token, wrappedKeyset map[string]string) (map[string]string, error) {
	key := s.accountKey(string(token))

	var existing map[string]string
	if err := s.getJSONKey(ctx, key, &existing); err == nil {
		return existing, nil
	}

	body, err := json.Marshal(wrappedKeyset)
	if err != nil {
		return nil, err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytesReader(body),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		// Someone else won the race; fetch what they stored.
		var stored map[string]string
		if getErr := s.getJSONKey(ctx, key, &stored); getErr == nil {
			return stored, nil
		}
		return nil, classify("account_key", err)
	}
	return wrappedKeyset, nil
}

// ReportError uploads a diagnostic bundle for operator triage.
func (s *Store) ReportError(ctx context.Context, version, osName, ucid, description, logContext, log string) error {
	key := s.prefix + "reports/" + ucid + "/" + uuid.NewString()
	body, err := json.Marshal(map[string]string{
		"version":     version,
		"os":          osName,
		"ucid":        ucid,
		"description": description,
		"context":     logContext,
		"log":         log,
	})
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytesReader(body),
	})
	if err != nil {
		return classify("report_error", err)
	}
	return nil
}
