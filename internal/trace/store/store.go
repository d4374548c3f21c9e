package store

import (
	"context"
	"errors"
	"time"

	"github.com/tracelight/tracelight/internal/trace/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to actively stop people from accidentally opening
// transactions within transactions.
type Store interface {
	Users() Users
	Applications() Applications
	AuthorizationCodes() AuthorizationCodes
	Tokens() Tokens
	Knowledge() Knowledge
	Documents() Documents
	PreviewConsumptions() PreviewConsumptions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., code
	// redemption followed by token issuance).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during the authorize login step.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}

type Applications interface {
	// CreateApplication inserts a new OAuth application (id and client_id are
	// generated by the service).
	CreateApplication(ctx context.Context, a domain.Application) error

	// GetApplicationByClientID fetches an application by its public client_id.
	GetApplicationByClientID(ctx context.Context, clientID string) (domain.Application, error)

	// GetApplicationByID fetches an application by its primary id.
	GetApplicationByID(ctx context.Context, id string) (domain.Application, error)

	// ListApplicationsByOwner returns the owner's applications, newest first.
	ListApplicationsByOwner(ctx context.Context, ownerUserID string) ([]domain.Application, error)

	// SetApplicationActive toggles the active flag and bumps updated_at.
	SetApplicationActive(ctx context.Context, id string, active bool) error

	// DeleteApplication removes an application owned by ownerUserID.
	// Returns ErrNotFound when no such row exists for that owner.
	DeleteApplication(ctx context.Context, id, ownerUserID string) error
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted authorization code.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// ConsumeAuthorizationCode atomically redeems an unused, unexpired code by
	// its fingerprint and returns the row. Exactly one concurrent caller wins;
	// every other caller gets ErrNotFound.
	ConsumeAuthorizationCode(ctx context.Context, codeHash string, now time.Time) (domain.AuthorizationCode, error)

	// DeleteExpiredAuthorizationCodes removes codes past their expiry (housekeeping).
	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) error
}

type Tokens interface {
	// CreateToken stores a new access/refresh token pair record.
	CreateToken(ctx context.Context, t domain.Token) error

	// GetTokenByAccessHash returns the record for a fingerprinted access token.
	GetTokenByAccessHash(ctx context.Context, hash string) (domain.Token, error)

	// ConsumeRefreshToken atomically marks an unconsumed, unexpired refresh
	// token as consumed and returns the row. Single winner under concurrency,
	// same contract as ConsumeAuthorizationCode.
	ConsumeRefreshToken(ctx context.Context, refreshHash string, now time.Time) (domain.Token, error)

	// RevokeToken flips revoked=1 for a token record.
	RevokeToken(ctx context.Context, id string) error

	// DeleteExpiredTokens removes rows whose refresh expiry has passed (housekeeping).
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

type Knowledge interface {
	// CreateOrganization inserts a new organization.
	CreateOrganization(ctx context.Context, o domain.Organization) error

	// AddOrganizationMember links a user to an organization.
	AddOrganizationMember(ctx context.Context, orgID, userID string) error

	// CreateKnowledgeBase inserts a new knowledge base (personal or org owned).
	CreateKnowledgeBase(ctx context.Context, kb domain.KnowledgeBase) error

	// PersonalKnowledgeBaseIDs returns IDs of KBs owned directly by the user.
	PersonalKnowledgeBaseIDs(ctx context.Context, userID string) ([]string, error)

	// OrganizationKnowledgeBaseIDs returns IDs of KBs owned by any
	// organization the user is a member of.
	OrganizationKnowledgeBaseIDs(ctx context.Context, userID string) ([]string, error)
}

type Documents interface {
	// CreateDocument inserts a document row.
	CreateDocument(ctx context.Context, d domain.Document) error

	// GetDocumentByID fetches a document for preview rendering.
	GetDocumentByID(ctx context.Context, id string) (domain.Document, error)
}

type PreviewConsumptions interface {
	// ConsumePreviewJTI records a preview token ID as used. The jti column is
	// the primary key, so a second consumption returns ErrAlreadyExists.
	ConsumePreviewJTI(ctx context.Context, jti string, expiresAt time.Time) error

	// DeleteExpiredPreviewJTIs removes consumption rows whose token has
	// expired anyway (housekeeping).
	DeleteExpiredPreviewJTIs(ctx context.Context, now time.Time) error
}
