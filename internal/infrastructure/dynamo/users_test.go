package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/estore-auth/internal/config"
	"github.com/estore-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const conditionalCheckFailed = `{"__type":"com.amazonaws.dynamodb.v20120810#ConditionalCheckFailedException","message":"The conditional request failed"}`

type cannedResponse struct {
	status int
	body   string
}

// fakeDynamo answers DynamoDB JSON API calls with canned responses per action
// and records the decoded request bodies.
type fakeDynamo struct {
	mu        sync.Mutex
	responses map[string]cannedResponse
	requests  map[string]map[string]any
	actions   []string
}

func newFakeDynamo(t *testing.T) (*fakeDynamo, *UserRepo) {
	t.Helper()
	f := &fakeDynamo{responses: map[string]cannedResponse{}, requests: map[string]map[string]any{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), config.AWSConfig{
		Region:      "us-east-1",
		EndpointURL: srv.URL,
		AccessKeyID: "test",
		SecretKey:   "test",
	})
	require.NoError(t, err)
	return f, NewUserRepo(client, "users")
}

func (f *fakeDynamo) on(action string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[action] = cannedResponse{status: status, body: body}
}

func (f *fakeDynamo) request(action string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[action]
}

func (f *fakeDynamo) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

func (f *fakeDynamo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.Header.Get("X-Amz-Target"), "DynamoDB_20120810.")
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.actions = append(f.actions, action)
	f.requests[action] = body
	resp, ok := f.responses[action]
	f.mu.Unlock()
	if !ok {
		resp = cannedResponse{status: http.StatusOK, body: `{}`}
	}

	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func userItem(id, email string, verified bool) string {
	return fmt.Sprintf(`{"user_id":{"S":%q},"name":{"S":"Ada"},"email":{"S":%q},"password_hash":{"S":"$2a$10$hash"},`+
		`"role":{"S":"user"},"is_verified":{"BOOL":%t},"created_at":{"S":"2026-01-02T03:04:05Z"},"updated_at":{"S":"2026-01-02T03:04:05Z"}}`,
		id, email, verified)
}

func newDomainUser() *domain.User {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.User{
		UserID:       "u1",
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepo_Get(t *testing.T) {
	f, repo := newFakeDynamo(t)
	f.on("GetItem", http.StatusOK, `{"Item":`+userItem("u1", "ada@example.com", true)+`}`)

	u, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.True(t, u.Verified)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), u.CreatedAt.UTC())

	req := f.request("GetItem")
	assert.Equal(t, "users", req["TableName"])
	assert.Equal(t, map[string]any{"user_id": map[string]any{"S": "u1"}}, req["Key"])
}

func TestUserRepo_GetMissing(t *testing.T) {
	_, repo := newFakeDynamo(t)

	_, err := repo.Get(context.Background(), "ghost")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUserRepo_GetByEmail(t *testing.T) {
	f, repo := newFakeDynamo(t)
	f.on("Query", http.StatusOK, `{"Count":1,"Items":[`+userItem("u1", "ada@example.com", false)+`]}`)

	u, err := repo.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.False(t, u.Verified)

	req := f.request("Query")
	assert.Equal(t, indexEmail, req["IndexName"])
	assert.Equal(t, map[string]any{"#a": fieldEmail}, req["ExpressionAttributeNames"])
}

func TestUserRepo_GetByEmailMissing(t *testing.T) {
	f, repo := newFakeDynamo(t)
	f.on("Query", http.StatusOK, `{"Count":0,"Items":[]}`)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUserRepo_Create(t *testing.T) {
	f, repo := newFakeDynamo(t)
	f.on("Query", http.StatusOK, `{"Count":0,"Items":[]}`)

	require.NoError(t, repo.Create(context.Background(), newDomainUser()))
	assert.Equal(t, []string{"Query", "PutItem"}, f.called())

	req := f.request("PutItem")
	assert.Equal(t, "attribute_not_exists(#id)", req["ConditionExpression"])
	item, ok := req["Item"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"S": "ada@example.com"}, item["email"])
	assert.Equal(t, map[string]any{"BOOL": false}, item["is_verified"])
}

func TestUserRepo_CreateExistingEmail(t *testing.T) {
	f, repo := newFakeDynamo(t)
	f.on("Query", http.StatusOK, `{"Count":1,"Items":[`+userItem("u0", "ada@example.com", true)+`]}`)

	err := repo.Create(context.Background(), newDomainUser())
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, []string{"Query"}, f.called())
}

func TestUserRepo_CreateConditionFailed(t *testing.T) {
	f, repo := newFakeDynamo(t)
	f.on("Query", http.StatusOK, `{"Count":0,"Items":[]}`)
	f.on("PutItem", http.StatusBadRequest, conditionalCheckFailed)

	err := repo.Create(context.Background(), newDomainUser())
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestUserRepo_CreateQueryFailure(t *testing.T) {
	f, repo := newFakeDynamo(t)
	f.on("Query", http.StatusBadRequest, `{"__type":"com.amazonaws.dynamodb.v20120810#ValidationException","message":"bad index"}`)

	err := repo.Create(context.Background(), newDomainUser())
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrConflict))
	assert.ErrorContains(t, err, "query user by email")
}

func TestUserRepo_Update(t *testing.T) {
	f, repo := newFakeDynamo(t)
	verified := true

	require.NoError(t, repo.Update(context.Background(), "u1", domain.UserUpdate{Verified: &verified}))

	req := f.request("UpdateItem")
	assert.Equal(t, "attribute_exists(#id)", req["ConditionExpression"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1", req["UpdateExpression"])
	names, ok := req["ExpressionAttributeNames"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, fieldVerified, names["#f0"])
	assert.Equal(t, fieldUpdatedAt, names["#f1"])
	assert.Equal(t, fieldUserID, names["#id"])
}

func TestUserRepo_UpdateMissingUser(t *testing.T) {
	f, repo := newFakeDynamo(t)
	f.on("UpdateItem", http.StatusBadRequest, conditionalCheckFailed)
	hash := "$2a$10$new"

	err := repo.Update(context.Background(), "ghost", domain.UserUpdate{PasswordHash: &hash})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUserRepo_UpdateEmpty(t *testing.T) {
	f, repo := newFakeDynamo(t)

	assert.ErrorContains(t, repo.Update(context.Background(), "u1", domain.UserUpdate{}), "no fields")
	assert.Empty(t, f.called())
}
