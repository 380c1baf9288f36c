package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStakeholderHandler_Add(t *testing.T) {
	env := newHandlerEnv(t)
	owner := testutil.CreateTestClient(t, env.db, "Owner", "owner@acme.test")
	partner := testutil.CreateTestClient(t, env.db, "Partner", "partner@acme.test")
	deal := testutil.CreateTestDeal(t, env.db, owner.ID, "Rollout", nil)
	dealID := strconv.FormatUint(uint64(deal.ID), 10)

	add := func(body interface{}) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		env.stakeholders.Add(rr, newRequest(t, http.MethodPost, "/deals/"+dealID+"/stakeholders", body,
			map[string]string{"dealId": dealID}))
		return rr
	}
	countRows := func() int64 {
		var n int64
		require.NoError(t, env.db.Model(&domain.DealStakeholder{}).
			Where("deal_id = ? AND client_id = ?", deal.ID, partner.ID).
			Count(&n).Error)
		return n
	}

	receivesUpdates := false
	receivesBilling := true
	request := domain.AddStakeholderRequest{
		ClientID:        partner.ID,
		ReceivesUpdates: &receivesUpdates,
		ReceivesBilling: &receivesBilling,
	}

	t.Run("adds with preferences", func(t *testing.T) {
		rr := add(request)

		require.Equal(t, http.StatusCreated, rr.Code)
		var dto domain.StakeholderDTO
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dto))
		assert.Equal(t, partner.ID, dto.ClientID)
		assert.True(t, dto.ReceivesBilling)
		assert.False(t, dto.ReceivesUpdates)
		assert.Equal(t, int64(1), countRows())
	})

	t.Run("duplicate is a bad request and adds no row", func(t *testing.T) {
		rr := add(request)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "This contact is already a stakeholder", decodeAPIError(t, rr).Detail)
		assert.Equal(t, int64(1), countRows())
	})

	t.Run("missing client id", func(t *testing.T) {
		rr := add(map[string]interface{}{"role": "sponsor"})

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeAPIError(t, rr).Errors, "clientId")
	})

	t.Run("unknown deal", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.stakeholders.Add(rr, newRequest(t, http.MethodPost, "/deals/999/stakeholders", request,
			map[string]string{"dealId": "999"}))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("list keeps the primary client out of the stakeholder rows", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.stakeholders.List(rr, newRequest(t, http.MethodGet, "/deals/"+dealID+"/stakeholders", nil,
			map[string]string{"dealId": dealID}))

		require.Equal(t, http.StatusOK, rr.Code)
		var list []domain.StakeholderDTO
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, partner.ID, list[0].ClientID)
	})
}
