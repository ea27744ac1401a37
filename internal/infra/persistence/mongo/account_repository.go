package mongo

import (
	"context"
	"strings"
	"time"

	"bidhub/internal/domain/entity"
	"bidhub/internal/domain/repository"
	"bidhub/internal/errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	emailIndex  = "uniq_email"
	handleIndex = "uniq_handle"
)

// collectionFor maps an account kind to its collection.
func collectionFor(kind entity.AccountKind) string {
	return kind.String() + "_accounts"
}

// EnsureIndexes creates the unique email and handle indexes of every registrable kind.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, kind := range entity.RegistrableKinds {
		_, err := db.Collection(collectionFor(kind)).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(emailIndex).SetUnique(true)},
			{Keys: bson.D{{Key: "handle", Value: 1}}, Options: options.Index().SetName(handleIndex).SetUnique(true)},
		})
		if err != nil {
			return errors.Wrapf(err, "failed to ensure %s indexes", kind)
		}
	}

	return nil
}

type otpDocument struct {
	CodeHash  string    `bson:"code_hash"`
	Purpose   string    `bson:"purpose"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type counterDocument struct {
	Count        int       `bson:"count"`
	LockoutUntil time.Time `bson:"lockout_until,omitempty"`
}

type deviceDocument struct {
	DeviceID  string    `bson:"device_id"`
	UserAgent string    `bson:"user_agent"`
	SourceIP  string    `bson:"source_ip"`
	FirstSeen time.Time `bson:"first_seen"`
	LastUsed  time.Time `bson:"last_used"`
}

// accountDocument is the stored shape; the whole aggregate is one document
// so a single ReplaceOne is atomic.
type accountDocument struct {
	ID                string           `bson:"_id"`
	Email             string           `bson:"email"`
	Handle            string           `bson:"handle"`
	DisplayName       string           `bson:"display_name"`
	PasswordHash      string           `bson:"password_hash"`
	PasswordExpiresAt time.Time        `bson:"password_expires_at"`
	IsVerified        bool             `bson:"is_verified"`
	VerifiedAt        *time.Time       `bson:"verified_at,omitempty"`
	OTP               *otpDocument     `bson:"otp,omitempty"`
	RegisterOTP       counterDocument  `bson:"register_otp"`
	ForgotOTP         counterDocument  `bson:"forgot_otp"`
	FailedOTPAttempts int              `bson:"failed_otp_attempts"`
	KnownDevices      []deviceDocument `bson:"known_devices"`
	LastLogin         *time.Time       `bson:"last_login,omitempty"`
	CreatedAt         time.Time        `bson:"created_at"`
	UpdatedAt         time.Time        `bson:"updated_at"`
}

// accountRepository implements repository.AccountRepository on MongoDB.
type accountRepository struct {
	db *mongo.Database
}

// NewAccountRepository is the constructor for accountRepository.
func NewAccountRepository(db *mongo.Database) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) FindByEmail(ctx context.Context, kind entity.AccountKind, email string) (*entity.Account, error) {
	return repo.findOne(ctx, kind, bson.M{"email": email})
}

func (repo *accountRepository) FindByHandle(ctx context.Context, kind entity.AccountKind, handle string) (*entity.Account, error) {
	return repo.findOne(ctx, kind, bson.M{"handle": handle})
}

func (repo *accountRepository) FindByID(ctx context.Context, kind entity.AccountKind, id uuid.UUID) (*entity.Account, error) {
	return repo.findOne(ctx, kind, bson.M{"_id": id.String()})
}

func (repo *accountRepository) findOne(ctx context.Context, kind entity.AccountKind, filter bson.M) (*entity.Account, error) {
	var doc accountDocument
	err := repo.db.Collection(collectionFor(kind)).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to find account")
	}

	return toAccountDomain(kind, &doc)
}

func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	_, err := repo.db.Collection(collectionFor(account.Kind)).InsertOne(ctx, fromAccountDomain(account))
	if err != nil {
		return translateWriteError(err, "failed to create account")
	}

	return nil
}

func (repo *accountRepository) Save(ctx context.Context, account *entity.Account) error {
	result, err := repo.db.Collection(collectionFor(account.Kind)).
		ReplaceOne(ctx, bson.M{"_id": account.ID.String()}, fromAccountDomain(account))
	if err != nil {
		return translateWriteError(err, "failed to save account")
	}
	if result.MatchedCount == 0 {
		return repository.ErrAccountNotFound
	}

	return nil
}

func translateWriteError(err error, msg string) error {
	if !mongo.IsDuplicateKeyError(err) {
		return errors.Wrap(err, msg)
	}
	if strings.Contains(err.Error(), handleIndex) {
		return repository.ErrDuplicateHandle
	}

	return repository.ErrDuplicateEmail
}

func fromAccountDomain(account *entity.Account) *accountDocument {
	doc := &accountDocument{
		ID:                account.ID.String(),
		Email:             account.Email,
		Handle:            account.Handle,
		DisplayName:       account.DisplayName,
		PasswordHash:      account.PasswordHash,
		PasswordExpiresAt: account.PasswordExpiresAt,
		IsVerified:        account.IsVerified,
		VerifiedAt:        account.VerifiedAt,
		RegisterOTP:       counterDocument(account.RegisterOTP),
		ForgotOTP:         counterDocument(account.ForgotOTP),
		FailedOTPAttempts: account.FailedOTPAttempts,
		KnownDevices:      make([]deviceDocument, 0, len(account.KnownDevices)),
		LastLogin:         account.LastLogin,
		CreatedAt:         account.CreatedAt,
		UpdatedAt:         account.UpdatedAt,
	}
	if account.OTP != nil {
		doc.OTP = &otpDocument{
			CodeHash:  account.OTP.CodeHash,
			Purpose:   account.OTP.Purpose.String(),
			ExpiresAt: account.OTP.ExpiresAt,
		}
	}
	for _, device := range account.KnownDevices {
		doc.KnownDevices = append(doc.KnownDevices, deviceDocument(device))
	}

	return doc
}

func toAccountDomain(kind entity.AccountKind, doc *accountDocument) (*entity.Account, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed account id %q", doc.ID)
	}

	account := &entity.Account{
		ID:                id,
		Kind:              kind,
		Email:             doc.Email,
		Handle:            doc.Handle,
		DisplayName:       doc.DisplayName,
		PasswordHash:      doc.PasswordHash,
		PasswordExpiresAt: doc.PasswordExpiresAt,
		IsVerified:        doc.IsVerified,
		VerifiedAt:        doc.VerifiedAt,
		RegisterOTP:       entity.OTPCounter(doc.RegisterOTP),
		ForgotOTP:         entity.OTPCounter(doc.ForgotOTP),
		FailedOTPAttempts: doc.FailedOTPAttempts,
		LastLogin:         doc.LastLogin,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
	if doc.OTP != nil {
		account.OTP = &entity.OTPChallenge{
			CodeHash:  doc.OTP.CodeHash,
			Purpose:   entity.OTPPurpose(doc.OTP.Purpose),
			ExpiresAt: doc.OTP.ExpiresAt,
		}
	}
	for _, device := range doc.KnownDevices {
		account.KnownDevices = append(account.KnownDevices, entity.KnownDevice(device))
	}

	return account, nil
}
