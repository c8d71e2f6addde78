package session

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Credential is a single stored credential value. The table holds at most
// two rows, one per storage key.
type Credential struct {
	bun.BaseModel `bun:"table:credentials,alias:cred"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Key           string     `bun:"key,notnull,unique" json:"key,omitempty"`
	Value         string     `bun:"value,notnull" json:"value,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

var upsertCredentialSQL = `INSERT INTO "credentials" ("id", "key", "value", "updated_at")
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT ("key") DO UPDATE
SET
	"value" = EXCLUDED."value",
	"updated_at" = CURRENT_TIMESTAMP
RETURNING *;`

// BunStore is a CredentialStore backed by a bun-managed database (sqlite in
// the admin console deployment). Save and Clear run inside one transaction
// so a reader can never observe a half-written pair.
type BunStore struct {
	repository.Repository[*Credential]
	db *bun.DB
}

var (
	_ CredentialStore                    = (*BunStore)(nil)
	_ repository.Repository[*Credential] = (*BunStore)(nil)
)

// NewBunStore returns a store using db for persistence. Call Init once to
// create the backing table.
func NewBunStore(db *bun.DB) *BunStore {
	repo := repository.NewRepository[*Credential](db, repository.ModelHandlers[*Credential]{
		NewRecord: func() *Credential { return &Credential{} },
		GetID: func(c *Credential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Credential, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
	})

	return &BunStore{
		Repository: repo,
		db:         db,
	}
}

// Init creates the credentials table when missing.
func (s *BunStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*Credential)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to create credentials table")
	}
	return nil
}

func (s *BunStore) Save(ctx context.Context, pair TokenPair) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		values := map[string]string{
			StorageKeyAccessToken:  pair.Access,
			StorageKeyRefreshToken: pair.Refresh,
		}
		for key, value := range values {
			if _, err := s.Repository.RawTx(ctx, tx, upsertCredentialSQL, uuid.New().String(), key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to persist credentials")
	}
	return nil
}

func (s *BunStore) Load(ctx context.Context) (*TokenPair, error) {
	var out *TokenPair

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		records := []*Credential{}
		err := tx.NewSelect().
			Model(&records).
			Where("?TableAlias.key IN (?)", bun.In(credentialKeys())).
			Scan(ctx)
		if err != nil && err != sql.ErrNoRows {
			return err
		}

		pair := TokenPair{}
		for _, rec := range records {
			switch rec.Key {
			case StorageKeyAccessToken:
				pair.Access = rec.Value
			case StorageKeyRefreshToken:
				pair.Refresh = rec.Value
			}
		}

		loaded, corrupt := sweepHalfPair(pair)
		if corrupt {
			return s.clearTx(ctx, tx)
		}

		out = loaded
		return nil
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to load credentials")
	}

	return out, nil
}

func (s *BunStore) Clear(ctx context.Context) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.clearTx(ctx, tx)
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to clear credentials")
	}
	return nil
}

func (s *BunStore) clearTx(ctx context.Context, tx bun.IDB) error {
	_, err := tx.NewDelete().
		Model((*Credential)(nil)).
		Where("key IN (?)", bun.In(credentialKeys())).
		Exec(ctx)
	return err
}

func credentialKeys() []string {
	return []string{StorageKeyAccessToken, StorageKeyRefreshToken}
}
