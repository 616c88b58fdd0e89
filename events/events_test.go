package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantrypal/gateway"
	"pantrypal/inventory"
	"pantrypal/session"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs []message
	err  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, message{subject: subject, data: data})
	return nil
}

func TestSubject(t *testing.T) {
	tests := []struct {
		user string
		want string
	}{
		{user: "abc123", want: "pantrypal.abc123.carts"},
		{user: "a.b*c>d e", want: "pantrypal.a_b_c_d_e.carts"},
		{user: "", want: "pantrypal._.carts"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Subject("pantrypal", tt.user, "carts"))
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATSPublisher(conn, "pantrypal")

	item := inventory.Item{Name: "milk", Store: "Aldi", Count: 1, Cost: 100}
	change := inventory.Change{UserID: "u1", Collection: "carts", Op: inventory.OpAdd, Key: "milk-Aldi", Item: &item, Outcome: "applied"}
	require.NoError(t, p.Publish(context.Background(), change))

	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "pantrypal.u1.carts", conn.msgs[0].subject)

	var got inventory.Change
	require.NoError(t, json.Unmarshal(conn.msgs[0].data, &got))
	assert.Equal(t, change, got)
}

func TestNATSPublisher_Errors(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	p := NewNATSPublisher(conn, "pantrypal")

	err := p.Publish(context.Background(), inventory.Change{UserID: "u1", Collection: "carts"})
	assert.ErrorContains(t, err, "publish pantrypal.u1.carts")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.Publish(ctx, inventory.Change{UserID: "u1", Collection: "carts"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNATSPublisher_AsManagerNotifier(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{}
	cart := inventory.NewCart(gateway.New(gateway.NewMemoryStore()), inventory.Options{
		Notifier: NewNATSPublisher(conn, "pantrypal"),
	})
	cart.Load(ctx, session.Identity{ID: "u1"})

	_, err := cart.Add(ctx, inventory.Item{Name: "tea", Store: "Lidl", Count: 1, Cost: 250})
	require.NoError(t, err)
	_, err = cart.Delete(ctx, inventory.Item{Name: "tea", Store: "Lidl"})
	require.NoError(t, err)

	require.Len(t, conn.msgs, 2)
	var del inventory.Change
	require.NoError(t, json.Unmarshal(conn.msgs[1].data, &del))
	assert.Equal(t, inventory.OpDelete, del.Op)
	assert.Nil(t, del.Item)
	assert.Equal(t, "applied", del.Outcome)
}
