package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/config"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/http/handler"
	"github.com/bettersystems/crm-api/internal/lock"
	"github.com/bettersystems/crm-api/internal/repository"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/bettersystems/crm-api/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type handlerEnv struct {
	db           *gorm.DB
	clients      *handler.ClientHandler
	tickets      *handler.TicketHandler
	external     *handler.ExternalTicketHandler
	reviews      *handler.ReviewHandler
	stakeholders *handler.StakeholderHandler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	locker := lock.NewLocalLocker()

	clientRepo := repository.NewClientRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	dealRepo := repository.NewDealRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)
	activity := service.NewActivityService(repository.NewActivityRepository(db), logger)

	stakeholderService := service.NewStakeholderService(repository.NewStakeholderRepository(db), dealRepo, clientRepo, activity, logger)
	reviewService := service.NewReviewService(repository.NewReviewRepository(db), activity, logger)
	clientService := service.NewClientService(clientRepo, projectRepo, dealRepo, emailLogRepo, activity, logger)
	ticketService := service.NewTicketService(ticketRepo, clientRepo, dealRepo, invoiceRepo, locker, activity, logger)
	externalService := service.NewExternalTicketService(&config.ExternalTicketsConfig{
		APIKeys: map[string]string{"Portal": "portal-key"},
	}, ticketRepo, clientRepo, dealRepo, locker, activity, logger)

	return &handlerEnv{
		db:           db,
		clients:      handler.NewClientHandler(clientService, logger),
		tickets:      handler.NewTicketHandler(ticketService, logger),
		external:     handler.NewExternalTicketHandler(externalService, logger),
		reviews:      handler.NewReviewHandler(reviewService, logger),
		stakeholders: handler.NewStakeholderHandler(stakeholderService, logger),
	}
}

func adminContext() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:   1,
		Username: "admin",
		Email:    "admin@bettersystems.ai",
		Role:     domain.UserRoleAdmin,
	})
}

// newRequest builds a request with the admin caller, a JSON body and chi URL params
func newRequest(t *testing.T, method, target string, body interface{}, params map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	ctx := adminContext()
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeAPIError(t *testing.T, rr *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr))
	return apiErr
}
