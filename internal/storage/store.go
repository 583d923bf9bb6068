package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pders01/lumina/internal/api"
)

var (
	prefsBucket    = []byte("prefs")
	articlesBucket = []byte("articles")
	viewBucket     = []byte("view")

	tokenKey    = []byte("auth_token")
	languageKey = []byte("language")
	lastViewKey = []byte("last_view")
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db  *bolt.DB
	now func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{prefsBucket, articlesBucket, viewBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) putPref(key []byte, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(prefsBucket)
		if value == "" {
			return b.Delete(key)
		}
		return b.Put(key, []byte(value))
	})
}

func (s *Store) getPref(key []byte) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(prefsBucket).Get(key)
		if data == nil {
			return ErrNotFound
		}
		value = string(data)
		return nil
	})
	return value, err
}

// SetToken stores the auth token. An empty token removes it.
func (s *Store) SetToken(token string) error { return s.putPref(tokenKey, token) }

func (s *Store) Token() (string, error) { return s.getPref(tokenKey) }

func (s *Store) SetLanguage(lang string) error { return s.putPref(languageKey, lang) }

func (s *Store) Language() (string, error) { return s.getPref(languageKey) }

func (s *Store) SaveLastView(query string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(ViewState{Query: query, UpdatedAt: s.now()})
		if err != nil {
			return err
		}
		return tx.Bucket(viewBucket).Put(lastViewKey, data)
	})
}

func (s *Store) LastView() (*ViewState, error) {
	var view ViewState
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(viewBucket).Get(lastViewKey)
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &view)
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// SaveArticles caches articles, overwriting earlier copies.
func (s *Store) SaveArticles(articles []api.Article) error {
	now := s.now()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		for _, article := range articles {
			if article.ID == "" {
				continue
			}
			data, err := json.Marshal(CachedArticle{Article: article, CachedAt: now})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(article.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetArticle(id api.ID) (*CachedArticle, error) {
	var article CachedArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(articlesBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("article %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &article)
	})
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// GetArticles returns cached articles, most recently published first.
func (s *Store) GetArticles(limit int) ([]*CachedArticle, error) {
	var articles []*CachedArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(articlesBucket).ForEach(func(_ []byte, v []byte) error {
			var article CachedArticle
			if err := json.Unmarshal(v, &article); err != nil {
				return nil
			}
			articles = append(articles, &article)
			return nil
		})
	})
	sort.SliceStable(articles, func(i, j int) bool {
		return published(articles[i]).After(published(articles[j]))
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, err
}

func published(a *CachedArticle) time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	return a.CachedAt
}

func (s *Store) DeleteArticles(ids []api.ID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Prune drops cached articles older than maxAge and returns their ids.
func (s *Store) Prune(maxAge time.Duration) ([]api.ID, error) {
	cutoff := s.now().Add(-maxAge)
	var removed []api.ID
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		err := b.ForEach(func(k, v []byte) error {
			var article CachedArticle
			if err := json.Unmarshal(v, &article); err != nil || article.CachedAt.Before(cutoff) {
				removed = append(removed, api.ID(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Deleting inside ForEach is not allowed.
		for _, id := range removed {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	return removed, err
}
