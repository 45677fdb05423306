package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store/drivers/memory"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store/storetest"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return memory.NewStore() })
}

func TestTxCommitAfterDoneFails(t *testing.T) {
	s := memory.NewStore()
	tx, err := s.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.Error(t, tx.Commit())
	require.Error(t, tx.Rollback())
}

func TestConcurrentTransactionsSerialize(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	admin := domain.User{ID: idx.New().String(), Username: "admin", Email: "admin@example.com", CreatedAt: time.Now()}
	require.NoError(t, s.Users().CreateUser(ctx, admin))

	inv := domain.Invitation{ID: idx.New().String(), Email: "x@example.com", Token: "t", InvitedBy: admin.ID, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Invitations().CreateInvitation(ctx, inv))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTx(ctx, func(tx store.Tx) error {
				return tx.Invitations().MarkAccepted(ctx, inv.ID, time.Now())
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}
