package workflow

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"lensfrens/go-backend/internal/contentstore"
	"lensfrens/go-backend/internal/lenshub"
	"lensfrens/go-backend/pkg/models"
)

type Wallet interface {
	ListAccounts(ctx context.Context) ([]common.Address, error)
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	SignMessage(ctx context.Context, text string) ([]byte, error)
	SignTypedData(ctx context.Context, typedData models.TypedData) ([]byte, error)
}

type LensAPI interface {
	DefaultProfile(ctx context.Context, address string) (*models.Profile, error)
	Challenge(ctx context.Context, address string) (string, error)
	Authenticate(ctx context.Context, address, signature string) (models.Session, error)
	VerifyAccessToken(ctx context.Context, accessToken string) (bool, error)
	RefreshSession(ctx context.Context, refreshToken string) (models.Session, error)
	Dispatcher(ctx context.Context, profileID string) (*models.DispatcherStatus, error)
	CreateSetDispatcherTypedData(ctx context.Context, accessToken string, request models.SetDispatcherRequest) (*models.TypedDataResult, error)
	CreatePostTypedData(ctx context.Context, accessToken string, request models.CreatePostRequest) (*models.TypedDataResult, error)
	ValidateMetadata(ctx context.Context, metadata models.Metadata) (models.MetadataValidation, error)
}

type ContentStore = contentstore.Store

type LensHub interface {
	SetDispatcherWithSig(ctx context.Context, data lenshub.SetDispatcherWithSigData) (common.Hash, error)
	PostWithSig(ctx context.Context, data lenshub.PostWithSigData) (common.Hash, error)
}

type SessionStore interface {
	SaveSession(session models.Session) error
	LoadSession() (*models.Session, error)
	Clear() error
}
