package slack_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"pantrypal/inventory"
	"pantrypal/slack"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	resp   *http.Response
	err    error
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return m.resp, m.err
}

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}
}

func TestNewClient(t *testing.T) {
	client := slack.NewClient("http://slack.com/webhook", &mockDoer{})
	must.NotNil(t, client, "expected non-nil client")
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name    string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr error
	}{
		{
			name: "success",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return okResponse(), nil
			},
			wantErr: nil,
		},
		{
			name: "failure status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("bad request"))}, nil
			},
			wantErr: fmt.Errorf("failed to post message: 400 Bad Request"),
		},
		{
			name: "do error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: fmt.Errorf("network error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: tt.doFunc})
			err := client.PostMessage(context.Background(), "#groceries", "Hello, world!")
			should.Equal(t, tt.wantErr, err)
		})
	}
}

func TestPostMessage_MissingWebhook(t *testing.T) {
	client := slack.NewClient("", &mockDoer{})
	should.Error(t, client.PostMessage(context.Background(), "#groceries", "hi"))
}

func TestFormatShoppingList(t *testing.T) {
	groups := inventory.GroupByStore([]inventory.Item{
		{Name: "milk", Store: "Aldi", Count: 2, Cost: 125},
		{Name: "eggs", Store: "Costco", Count: 1, Cost: 450},
		{Name: "bread", Store: "Aldi", Count: 1, Cost: 250},
	})

	want := "*Shopping list*\n" +
		"\n*Aldi* ($5.00)\n" +
		"• milk x2 @ $1.25 = $2.50\n" +
		"• bread x1 @ $2.50 = $2.50\n" +
		"\n*Costco* ($4.50)\n" +
		"• eggs x1 @ $4.50 = $4.50\n" +
		"\n*Total:* $9.50"
	should.Equal(t, want, slack.FormatShoppingList(groups))
}

func TestPostShoppingList(t *testing.T) {
	var body map[string]string
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		must.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		should.Equal(t, "application/json", req.Header.Get("Content-Type"))
		return okResponse(), nil
	}}
	client := slack.NewClient("http://example.com/webhook", doer)

	groups := inventory.GroupByStore([]inventory.Item{{Name: "tea", Store: "Lidl", Count: 1, Cost: 300}})
	must.NoError(t, client.PostShoppingList(context.Background(), "#groceries", groups))
	should.Equal(t, "#groceries", body["channel"])
	should.Contains(t, body["text"], "*Lidl* ($3.00)")

	should.ErrorIs(t, client.PostShoppingList(context.Background(), "#groceries", nil), slack.ErrEmptyList)
}
