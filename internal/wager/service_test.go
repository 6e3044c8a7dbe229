package wager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wager_bank/internal/asset"
	"github.com/congo-pay/wager_bank/internal/bank"
	"github.com/congo-pay/wager_bank/internal/ledger"
	"github.com/congo-pay/wager_bank/internal/lock"
	"github.com/congo-pay/wager_bank/internal/logging"
	"github.com/congo-pay/wager_bank/internal/metrics"
	"github.com/congo-pay/wager_bank/internal/notification"
	"github.com/congo-pay/wager_bank/internal/payments"
	"github.com/congo-pay/wager_bank/internal/wallet"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (r *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return nil
}

type table struct {
	t         *testing.T
	ctx       context.Context
	led       ledger.Ledger
	wallets   *wallet.Service
	assets    *asset.Service
	banks     *bank.Service
	metrics   *metrics.Metrics
	notifier  *recordingNotifier
	bank      bank.Bank
	nft       asset.AssetType
	authority string
}

// newTable creates a bank funded with bankFunds whose permitted asset is nft.
func newTable(t *testing.T, bankFunds int64) *table {
	t.Helper()
	ctx := context.Background()
	led := ledger.NewInMemory()
	wallets := wallet.NewService(wallet.NewMemoryRepository(), led)
	assets := asset.NewService(asset.NewMemoryRepository())
	banks := bank.NewService(bank.NewMemoryRepository(), led, assets, wallets, nil, logging.Discard())

	authority := uuid.NewString()
	w, err := wallets.Create(ctx, authority)
	require.NoError(t, err)
	ledger.SeedBalance(led, w.AccountCode, bankFunds)

	nft, err := assets.CreateAssetType(ctx, asset.CreateAssetTypeInput{Authority: authority, Symbol: "NFT"})
	require.NoError(t, err)
	b, err := banks.Init(ctx, bank.InitInput{Authority: authority, Signer: authority, InitialFunding: bankFunds, PermittedAssetType: nft.ID})
	require.NoError(t, err)

	return &table{
		t:         t,
		ctx:       ctx,
		led:       led,
		wallets:   wallets,
		assets:    assets,
		banks:     banks,
		metrics:   metrics.New(prometheus.NewRegistry()),
		notifier:  &recordingNotifier{},
		bank:      b,
		nft:       nft,
		authority: authority,
	}
}

func (tb *table) engine(source RandomBit) *Service {
	return tb.engineWith(source, nil)
}

// engineWith lets a test swap individual dependencies before the engine is built.
func (tb *table) engineWith(source RandomBit, adjust func(*Dependencies)) *Service {
	deps := Dependencies{
		Banks:    tb.banks,
		Assets:   tb.assets,
		Wallets:  tb.wallets,
		Ledger:   tb.led,
		Source:   source,
		Metrics:  tb.metrics,
		Notifier: tb.notifier,
		Logger:   logging.Discard(),
	}
	if adjust != nil {
		adjust(&deps)
	}
	return NewService(deps)
}

// extraBank opens a second bank with the same authority and permitted asset.
func (tb *table) extraBank(funds int64) bank.Bank {
	tb.t.Helper()
	w, err := tb.wallets.GetByOwner(tb.ctx, tb.authority)
	require.NoError(tb.t, err)
	ledger.SeedBalance(tb.led, w.AccountCode, funds)
	b, err := tb.banks.Init(tb.ctx, bank.InitInput{Authority: tb.authority, Signer: tb.authority, InitialFunding: funds, PermittedAssetType: tb.nft.ID})
	require.NoError(tb.t, err)
	return b
}

// player registers a funded player holding `units` of the asset type at its
// canonical address.
func (tb *table) player(funds int64, at asset.AssetType, units int64) (string, asset.Holding) {
	tb.t.Helper()
	id := uuid.NewString()
	w, err := tb.wallets.Create(tb.ctx, id)
	require.NoError(tb.t, err)
	ledger.SeedBalance(tb.led, w.AccountCode, funds)

	h, err := tb.assets.OpenCanonical(tb.ctx, id, at.ID)
	require.NoError(tb.t, err)
	if units > 0 {
		h, err = tb.assets.MintTo(tb.ctx, at.Authority, h.Address, units)
		require.NoError(tb.t, err)
	}
	return id, h
}

func (tb *table) balances(playerID string) (int64, int64) {
	tb.t.Helper()
	bankBal, err := tb.banks.Balance(tb.ctx, tb.bank.ID)
	require.NoError(tb.t, err)
	w, err := tb.wallets.GetByOwner(tb.ctx, playerID)
	require.NoError(tb.t, err)
	playerBal, err := tb.led.Balance(tb.ctx, w.AccountCode)
	require.NoError(tb.t, err)
	return bankBal, playerBal
}

func (tb *table) gamble(svc *Service, playerID string, h asset.Holding, at asset.AssetType, amount int64) (Round, error) {
	return svc.Gamble(tb.ctx, GambleInput{
		BankID:         tb.bank.ID,
		PlayerID:       playerID,
		Signer:         playerID,
		HoldingAddress: h.Address,
		AssetTypeID:    at.ID,
		Amount:         amount,
	})
}

func TestGambleBankWins(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(100, tb.nft, 1)

	round, err := tb.gamble(tb.engine(FixedSource(1)), player, h, tb.nft, 50)
	require.NoError(t, err)
	require.Equal(t, ResultBankWon, round.Result)
	require.True(t, round.Eligible)
	require.Equal(t, 1, round.Bit)
	require.EqualValues(t, 50, round.Transferred)
	require.Equal(t, tb.bank.AccountCode, round.Winner)

	bankBal, playerBal := tb.balances(player)
	require.EqualValues(t, 1_050, bankBal)
	require.EqualValues(t, 50, playerBal)
	require.EqualValues(t, bankBal, round.BankBalance)
	require.EqualValues(t, playerBal, round.PlayerBalance)
}

func TestGamblePlayerWins(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(100, tb.nft, 1)

	round, err := tb.gamble(tb.engine(FixedSource(0)), player, h, tb.nft, 50)
	require.NoError(t, err)
	require.Equal(t, ResultPlayerWon, round.Result)
	require.Equal(t, 0, round.Bit)
	require.EqualValues(t, 100, round.Transferred)

	bankBal, playerBal := tb.balances(player)
	require.EqualValues(t, 900, bankBal)
	require.EqualValues(t, 200, playerBal)
}

func TestGambleMismatchedAssetDrains(t *testing.T) {
	tb := newTable(t, 1_000)
	gem, err := tb.assets.CreateAssetType(tb.ctx, asset.CreateAssetTypeInput{Authority: tb.authority, Symbol: "GEM"})
	require.NoError(t, err)
	player, h := tb.player(100, gem, 1)

	round, err := tb.gamble(tb.engine(FixedSource(0)), player, h, gem, 50)
	require.NoError(t, err)
	require.Equal(t, ResultDrained, round.Result)
	require.False(t, round.Eligible)
	require.Equal(t, NoBit, round.Bit)
	require.EqualValues(t, 100, round.Transferred)

	bankBal, playerBal := tb.balances(player)
	require.EqualValues(t, 1_100, bankBal)
	require.Zero(t, playerBal)
}

func TestGambleNonCanonicalHoldingDrains(t *testing.T) {
	tb := newTable(t, 1_000)
	player, _ := tb.player(100, tb.nft, 0)
	aux, err := tb.assets.OpenAuxiliary(tb.ctx, player, tb.nft.ID)
	require.NoError(t, err)
	aux, err = tb.assets.MintTo(tb.ctx, tb.authority, aux.Address, 1)
	require.NoError(t, err)

	round, err := tb.gamble(tb.engine(FixedSource(0)), player, aux, tb.nft, 10)
	require.NoError(t, err)
	require.Equal(t, ResultDrained, round.Result)

	bankBal, playerBal := tb.balances(player)
	require.EqualValues(t, 1_100, bankBal)
	require.Zero(t, playerBal)
}

func TestGambleEmptyHoldingDrains(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(70, tb.nft, 0)

	round, err := tb.gamble(tb.engine(FixedSource(1)), player, h, tb.nft, 10)
	require.NoError(t, err)
	require.Equal(t, ResultDrained, round.Result)
	require.EqualValues(t, 70, round.Transferred)
}

func TestGambleBankCannotCover(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(1_000, tb.nft, 1)

	_, err := tb.gamble(tb.engine(FixedSource(0)), player, h, tb.nft, 600)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	bankBal, playerBal := tb.balances(player)
	require.EqualValues(t, 1_000, bankBal)
	require.EqualValues(t, 1_000, playerBal)
	require.Equal(t, 1.0, testutil.ToFloat64(tb.metrics.SettlementFailures.WithLabelValues("insufficient_funds")))
}

func TestGamblePlayerCannotStake(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(40, tb.nft, 1)

	_, err := tb.gamble(tb.engine(FixedSource(1)), player, h, tb.nft, 50)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	bankBal, playerBal := tb.balances(player)
	require.EqualValues(t, 1_000, bankBal)
	require.EqualValues(t, 40, playerBal)
}

func TestGambleRejectsForeignSignerAndBadInput(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(100, tb.nft, 1)
	svc := tb.engine(FixedSource(1))

	_, err := svc.Gamble(tb.ctx, GambleInput{BankID: tb.bank.ID, PlayerID: player, Signer: tb.authority, HoldingAddress: h.Address, AssetTypeID: tb.nft.ID, Amount: 10})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = tb.gamble(svc, player, h, tb.nft, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Gamble(tb.ctx, GambleInput{BankID: uuid.NewString(), PlayerID: player, Signer: player, HoldingAddress: h.Address, AssetTypeID: tb.nft.ID, Amount: 10})
	require.ErrorIs(t, err, bank.ErrNotFound)

	_, err = tb.gamble(svc, player, asset.Holding{Address: "missing"}, tb.nft, 10)
	require.ErrorIs(t, err, asset.ErrHoldingNotFound)

	bankBal, playerBal := tb.balances(player)
	require.EqualValues(t, 1_000, bankBal)
	require.EqualValues(t, 100, playerBal)
}

func TestGambleDuplicateClientTxIsTransferFailure(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(100, tb.nft, 1)
	svc := tb.engine(FixedSource(1))

	in := GambleInput{BankID: tb.bank.ID, PlayerID: player, Signer: player, HoldingAddress: h.Address, AssetTypeID: tb.nft.ID, Amount: 10, ClientTxID: "same"}
	_, err := svc.Gamble(tb.ctx, in)
	require.NoError(t, err)

	_, err = svc.Gamble(tb.ctx, in)
	require.ErrorIs(t, err, ErrTransferFailed)
	require.ErrorIs(t, err, ledger.ErrDuplicateTransaction)

	bankBal, playerBal := tb.balances(player)
	require.EqualValues(t, 1_010, bankBal)
	require.EqualValues(t, 90, playerBal)
}

func TestGambleRecordsHistoryMetricsAndNotifications(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(100, tb.nft, 1)
	svc := tb.engine(NewSequenceSource(1, 0))

	first, err := tb.gamble(svc, player, h, tb.nft, 10)
	require.NoError(t, err)
	second, err := tb.gamble(svc, player, h, tb.nft, 10)
	require.NoError(t, err)

	rounds, err := svc.ListByBank(tb.ctx, tb.bank.ID, 10)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	require.Equal(t, second.ID, rounds[0].ID)

	stored, err := svc.GetRound(tb.ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, ResultBankWon, stored.Result)

	byPlayer, err := svc.ListByPlayer(tb.ctx, player, 0)
	require.NoError(t, err)
	require.Len(t, byPlayer, 2)

	require.Equal(t, 1.0, testutil.ToFloat64(tb.metrics.Rounds.WithLabelValues("bank_won")))
	require.Equal(t, 20.0, testutil.ToFloat64(tb.metrics.WageredAmount.WithLabelValues("player_won")))

	require.Len(t, tb.notifier.msgs, 2)
	require.Equal(t, notification.KindRoundSettled, tb.notifier.msgs[0].Kind)
	require.Equal(t, tb.bank.ID, tb.notifier.msgs[0].Key)

	_, err = svc.GetRound(tb.ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrRoundNotFound)
}

func TestGambleConcurrentRoundsConserveFunds(t *testing.T) {
	tb := newTable(t, 10_000)
	svc := tb.engine(NewSequenceSource(1, 0, 1, 0, 1, 0, 1, 0))

	const players = 8
	ids := make([]string, players)
	holdings := make([]asset.Holding, players)
	for i := range ids {
		ids[i], holdings[i] = tb.player(500, tb.nft, 1)
	}

	var wg sync.WaitGroup
	errs := make(chan error, players*5)
	for i := 0; i < players; i++ {
		for j := 0; j < 5; j++ {
			wg.Add(1)
			go func(i, j int) {
				defer wg.Done()
				_, err := svc.Gamble(tb.ctx, GambleInput{
					BankID:         tb.bank.ID,
					PlayerID:       ids[i],
					Signer:         ids[i],
					HoldingAddress: holdings[i].Address,
					AssetTypeID:    tb.nft.ID,
					Amount:         50,
					ClientTxID:     fmt.Sprintf("%d-%d", i, j),
				})
				if err != nil && !errors.Is(err, ErrInsufficientFunds) {
					errs <- err
				}
			}(i, j)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("gamble: %v", err)
	}

	total, err := tb.banks.Balance(tb.ctx, tb.bank.ID)
	require.NoError(t, err)
	for _, id := range ids {
		_, bal := tb.balances(id)
		require.GreaterOrEqual(t, bal, int64(0))
		total += bal
	}
	require.EqualValues(t, 10_000+players*500, total)
}

func TestGambleHandler(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(100, tb.nft, 1)
	handler := NewHandler(tb.engine(FixedSource(0)))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", player)
		return c.Next()
	})
	app.Post("/banks/:bankId/gamble", handler.Gamble)
	app.Get("/banks/:bankId/rounds", handler.ListByBank)

	body := fmt.Sprintf(`{"holding_address":%q,"asset_type_id":%q,"amount":50}`, h.Address, tb.nft.ID)
	req := httptest.NewRequest(http.MethodPost, "/banks/"+tb.bank.ID+"/gamble", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body = fmt.Sprintf(`{"holding_address":%q,"asset_type_id":%q,"amount":600}`, h.Address, tb.nft.ID)
	req = httptest.NewRequest(http.MethodPost, "/banks/"+tb.bank.ID+"/gamble", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/banks/"+uuid.NewString()+"/rounds", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// creditAfterRead deposits into target right after the first time its
// balance is read, i.e. between admission and settlement.
type creditAfterRead struct {
	ledger.Ledger
	target string
	amount int64
	once   sync.Once
}

func (l *creditAfterRead) Balance(ctx context.Context, code string) (int64, error) {
	bal, err := l.Ledger.Balance(ctx, code)
	if code == l.target {
		l.once.Do(func() {
			_, _ = l.Ledger.Deposit(ctx, code, "late-credit", l.amount)
		})
	}
	return bal, err
}

func TestGambleDrainSweepsLateCredit(t *testing.T) {
	tb := newTable(t, 1_000)
	gem, err := tb.assets.CreateAssetType(tb.ctx, asset.CreateAssetTypeInput{Authority: tb.authority, Symbol: "GEM"})
	require.NoError(t, err)
	player, h := tb.player(100, gem, 1)
	w, err := tb.wallets.GetByOwner(tb.ctx, player)
	require.NoError(t, err)
	require.NoError(t, tb.led.EnsureAccount(tb.ctx, ledger.ExternalSuspenseAccountCode))

	led := &creditAfterRead{Ledger: tb.led, target: w.AccountCode, amount: 500}
	svc := tb.engineWith(FixedSource(0), func(d *Dependencies) { d.Ledger = led })

	round, err := tb.gamble(svc, player, h, gem, 50)
	require.NoError(t, err)
	require.Equal(t, ResultDrained, round.Result)
	require.EqualValues(t, 600, round.Transferred)
	require.Zero(t, round.PlayerBalance)

	bankBal, playerBal := tb.balances(player)
	require.Zero(t, playerBal)
	require.EqualValues(t, 1_600, bankBal)
}

func TestGamblePlayerAtTwoBanksWithConcurrentPayments(t *testing.T) {
	tb := newTable(t, 10_000)
	second := tb.extraBank(10_000)
	locker := lock.NewKeyedMutex()
	svc := tb.engineWith(FixedSource(1), func(d *Dependencies) { d.Locker = locker })
	pay := payments.NewService(tb.led, tb.wallets, locker, nil, logging.Discard())

	// The holding's asset is not permitted anywhere, so every admitted round drains.
	gem, err := tb.assets.CreateAssetType(tb.ctx, asset.CreateAssetTypeInput{Authority: tb.authority, Symbol: "GEM"})
	require.NoError(t, err)
	player, h := tb.player(1_000, gem, 1)
	playerWallet, err := tb.wallets.GetByOwner(tb.ctx, player)
	require.NoError(t, err)
	funder, err := tb.wallets.Create(tb.ctx, uuid.NewString())
	require.NoError(t, err)
	ledger.SeedBalance(tb.led, funder.AccountCode, 5_000)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		rounds []Round
	)
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			bankID := tb.bank.ID
			if i%2 == 1 {
				bankID = second.ID
			}
			round, err := svc.Gamble(tb.ctx, GambleInput{
				BankID:         bankID,
				PlayerID:       player,
				Signer:         player,
				HoldingAddress: h.Address,
				AssetTypeID:    gem.ID,
				Amount:         50,
				ClientTxID:     fmt.Sprintf("round-%d", i),
			})
			switch {
			case err == nil:
				mu.Lock()
				rounds = append(rounds, round)
				mu.Unlock()
			case !errors.Is(err, ErrInsufficientFunds):
				errs <- err
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := pay.Transfer(tb.ctx, payments.TransferInput{
				FromWalletID: funder.ID,
				ToWalletID:   playerWallet.ID,
				Signer:       funder.OwnerID,
				Amount:       100,
				ClientTxID:   fmt.Sprintf("credit-%d", i),
			})
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent operation: %v", err)
	}

	require.NotEmpty(t, rounds)
	for _, round := range rounds {
		require.Equal(t, ResultDrained, round.Result)
		require.Zero(t, round.PlayerBalance, "drain must leave the player at zero")
	}

	first, err := tb.banks.Balance(tb.ctx, tb.bank.ID)
	require.NoError(t, err)
	other, err := tb.banks.Balance(tb.ctx, second.ID)
	require.NoError(t, err)
	playerBal, err := tb.led.Balance(tb.ctx, playerWallet.AccountCode)
	require.NoError(t, err)
	funderBal, err := tb.led.Balance(tb.ctx, funder.AccountCode)
	require.NoError(t, err)
	require.EqualValues(t, 3_000, funderBal)
	require.EqualValues(t, 10_000+10_000+1_000+5_000, first+other+playerBal+funderBal)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (e *eventLog) add(ev string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventLog) index(ev string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, got := range e.events {
		if got == ev {
			return i
		}
	}
	return -1
}

type loggingLocker struct {
	inner lock.Locker
	log   *eventLog
	fail  error
}

func (l *loggingLocker) Lock(ctx context.Context, key string) (lock.Unlock, error) {
	unlock, err := l.inner.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	l.log.add("lock " + key)
	return func() error {
		if err := unlock(); err != nil {
			return err
		}
		return l.fail
	}, nil
}

type loggingAssets struct {
	Assets
	log *eventLog
}

func (a loggingAssets) Get(ctx context.Context, address string) (asset.Holding, error) {
	a.log.add("holding")
	return a.Assets.Get(ctx, address)
}

func TestGambleReadsHoldingUnderLock(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(100, tb.nft, 1)
	w, err := tb.wallets.GetByOwner(tb.ctx, player)
	require.NoError(t, err)

	events := &eventLog{}
	svc := tb.engineWith(FixedSource(1), func(d *Dependencies) {
		d.Locker = &loggingLocker{inner: lock.NewKeyedMutex(), log: events}
		d.Assets = loggingAssets{Assets: tb.assets, log: events}
	})

	_, err = tb.gamble(svc, player, h, tb.nft, 10)
	require.NoError(t, err)

	holding := events.index("holding")
	require.NotEqual(t, -1, holding)
	require.Less(t, events.index("lock "+tb.bank.AccountCode), holding)
	require.Less(t, events.index("lock "+w.AccountCode), holding)
}

func TestGambleLogsFailedLockRelease(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(100, tb.nft, 1)

	var buf bytes.Buffer
	svc := tb.engineWith(FixedSource(1), func(d *Dependencies) {
		d.Locker = &loggingLocker{inner: lock.NewKeyedMutex(), log: &eventLog{}, fail: lock.ErrLost}
		d.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	})

	round, err := tb.gamble(svc, player, h, tb.nft, 10)
	require.NoError(t, err)
	require.Equal(t, ResultBankWon, round.Result)
	require.Contains(t, buf.String(), "settlement lock release failed")
	require.Contains(t, buf.String(), lock.ErrLost.Error())
}

func TestGambleReportsBusyPlayer(t *testing.T) {
	tb := newTable(t, 1_000)
	player, h := tb.player(100, tb.nft, 1)
	w, err := tb.wallets.GetByOwner(tb.ctx, player)
	require.NoError(t, err)
	locker := lock.NewKeyedMutex()
	svc := tb.engineWith(FixedSource(1), func(d *Dependencies) { d.Locker = locker })

	// A payment holding the player's wallet keeps the round out.
	unlock, err := locker.Lock(tb.ctx, w.AccountCode)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(tb.ctx, 20*time.Millisecond)
	defer cancel()
	_, err = svc.Gamble(ctx, GambleInput{BankID: tb.bank.ID, PlayerID: player, Signer: player, HoldingAddress: h.Address, AssetTypeID: tb.nft.ID, Amount: 10})
	require.ErrorIs(t, err, ErrBankBusy)
	require.NoError(t, unlock())

	bankBal, playerBal := tb.balances(player)
	require.EqualValues(t, 1_000, bankBal)
	require.EqualValues(t, 100, playerBal)
}
