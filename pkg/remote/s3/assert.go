package s3

import "github.com/safedrive/safedrive-engine/pkg/remote"

var _ remote.Store = (*Store)(nil)
