package service

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/storage"
	"context"
	"path"
	"strings"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	imageKeyRoot = "images"

	megabyte       = 1024 * 1024
	imageCacheSize = 8 * megabyte
)

// imagePrefix is the key prefix under which a user's uploads live.
func imagePrefix(user *domain.User) string {
	return path.Join(imageKeyRoot, user.ID.Hex()) + "/"
}

// checkImageKey rejects keys outside the user's own upload prefix so one
// user can neither display nor delete another user's objects.
func checkImageKey(user *domain.User, key *string) error {
	if key == nil {
		return nil
	}
	k := *key
	if k == "" || strings.Contains(k, "..") || !strings.HasPrefix(k, imagePrefix(user)) {
		return validationError("image key %q is not an upload of this user", k)
	}
	return nil
}

// ImageURLs resolves storage keys to temporary download URLs. A URL is
// reused for the first half of its lifetime so repeated reads hand the
// client the same URL and its image cache keeps hitting. One instance is
// shared by every service so a delete evicts the URL everywhere.
type ImageURLs struct {
	files  storage.FileStorage
	expiry time.Duration
	cache  *freecache.Cache
}

// NewImageURLs presigns against files with the given URL lifetime.
func NewImageURLs(files storage.FileStorage, expiry time.Duration) *ImageURLs {
	return &ImageURLs{
		files:  files,
		expiry: expiry,
		cache:  freecache.NewCache(imageCacheSize),
	}
}

// cacheSeconds is how long a presigned URL stays in the cache.
func (r *ImageURLs) cacheSeconds() int {
	seconds := int(r.expiry / time.Second / 2)
	if seconds < 1 {
		return 0
	}
	return seconds
}

// resolve returns nil for a nil key. A presign failure is logged and
// degrades to a missing image rather than failing the whole read.
func (r *ImageURLs) resolve(ctx context.Context, key *string) *string {
	if key == nil || *key == "" {
		return nil
	}
	if cached, err := r.cache.Get([]byte(*key)); err == nil {
		url := string(cached)
		return &url
	}

	url, err := r.files.GeneratePresignedDownloadURL(ctx, *key, r.expiry)
	if err != nil {
		log.WithError(err).WithField("key", *key).Warn("could not resolve image URL")
		return nil
	}

	if ttl := r.cacheSeconds(); ttl > 0 {
		if err := r.cache.Set([]byte(*key), []byte(url), ttl); err != nil {
			log.WithError(err).WithField("key", *key).Debug("could not cache image URL")
		}
	}
	return &url
}

// forget drops a cached URL once its object is deleted.
func (r *ImageURLs) forget(key string) {
	r.cache.Del([]byte(key))
}
