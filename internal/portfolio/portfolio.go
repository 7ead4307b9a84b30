// Package portfolio implements the authoritative ledger of cash, open
// positions, and trade history.
package portfolio

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "signal-trader/internal/errors"
	"signal-trader/internal/models"
)

// invariantTolerance bounds the acceptable floating drift between the
// stored equity and the recomputed ledger value.
const invariantTolerance = 1e-6

// TradeRequest describes one execution attempt against the ledger.
type TradeRequest struct {
	Symbol      string
	Side        models.Side
	Quantity    int
	Price       float64
	Commission  float64
	Timestamp   time.Time
	Reason      string
	StopPrice   float64
	TargetPrice float64
}

// Manager is the only component permitted to mutate capital state. All
// mutating calls are serialized behind a single mutex; snapshot readers
// never observe a partially updated ledger.
type Manager struct {
	logger zerolog.Logger
	newID  func() string

	mu        sync.Mutex
	cash      float64
	equity    float64
	positions map[string]*models.Position
	trades    []models.Trade
	marks     map[string]float64
}

// NewManager creates a ledger with the given starting cash.
func NewManager(initialCash float64, logger zerolog.Logger) *Manager {
	return &Manager{
		logger:    logger,
		newID:     uuid.NewString,
		cash:      initialCash,
		equity:    initialCash,
		positions: make(map[string]*models.Position),
		marks:     make(map[string]float64),
	}
}

// SetIDFunc overrides trade ID generation. Backtests install a
// sequential generator so repeated runs produce identical trade logs.
func (m *Manager) SetIDFunc(fn func() string) {
	if fn != nil {
		m.newID = fn
	}
}

// MarkPrice records the latest price for a symbol and revalues any open
// position at it.
func (m *Manager) MarkPrice(symbol string, price float64) error {
	if price <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	old, hadMark := m.marks[symbol]
	m.marks[symbol] = price
	if pos, ok := m.positions[symbol]; ok && hadMark {
		m.equity += (price - old) * float64(pos.Quantity)
	}
	return m.checkInvariantLocked()
}

// ExecuteTrade applies one trade to the ledger. Rejections
// (InsufficientFunds, DuplicatePosition, NoOpenPosition) leave the
// ledger untouched. A ledger invariant violation after the mutation is
// fatal and is returned as a LedgerError.
func (m *Manager) ExecuteTrade(req TradeRequest) (models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Quantity <= 0 || req.Price <= 0 {
		return models.Trade{}, apperrors.Wrapf(apperrors.New("invalid trade request"),
			"symbol %s qty %d price %.4f", req.Symbol, req.Quantity, req.Price)
	}

	switch req.Side {
	case models.SideBuy:
		return m.executeBuyLocked(req)
	case models.SideSell:
		return m.executeSellLocked(req)
	default:
		return models.Trade{}, apperrors.Wrapf(apperrors.New("invalid trade side"), "%s", req.Side)
	}
}

func (m *Manager) executeBuyLocked(req TradeRequest) (models.Trade, error) {
	if _, exists := m.positions[req.Symbol]; exists {
		return models.Trade{}, apperrors.Wrap(apperrors.ErrDuplicatePosition, req.Symbol)
	}

	cost := float64(req.Quantity)*req.Price + req.Commission
	if cost > m.cash {
		return models.Trade{}, apperrors.Wrapf(apperrors.ErrInsufficientFunds,
			"need %.2f, have %.2f", cost, m.cash)
	}

	m.cash -= cost
	m.marks[req.Symbol] = req.Price
	m.positions[req.Symbol] = &models.Position{
		Symbol:      req.Symbol,
		Quantity:    req.Quantity,
		EntryPrice:  req.Price,
		EntryTime:   req.Timestamp,
		StopPrice:   req.StopPrice,
		TargetPrice: req.TargetPrice,
	}
	// Equity moves only by the commission: cash drops by cost while the
	// new position is worth quantity*price.
	m.equity -= req.Commission

	trade := m.appendTradeLocked(req, 0)
	if err := m.checkInvariantLocked(); err != nil {
		return models.Trade{}, err
	}
	return trade, nil
}

func (m *Manager) executeSellLocked(req TradeRequest) (models.Trade, error) {
	pos, exists := m.positions[req.Symbol]
	if !exists {
		return models.Trade{}, apperrors.Wrap(apperrors.ErrNoOpenPosition, req.Symbol)
	}
	if req.Quantity > pos.Quantity {
		return models.Trade{}, apperrors.Wrapf(apperrors.ErrNoOpenPosition,
			"%s: selling %d, holding %d", req.Symbol, req.Quantity, pos.Quantity)
	}

	// Revalue the position at the fill price before applying the sale.
	oldMark := m.marks[req.Symbol]
	m.marks[req.Symbol] = req.Price
	m.equity += (req.Price - oldMark) * float64(pos.Quantity)

	proceeds := float64(req.Quantity)*req.Price - req.Commission
	m.cash += proceeds
	m.equity -= req.Commission

	realized := (req.Price-pos.EntryPrice)*float64(req.Quantity) - req.Commission

	if req.Quantity == pos.Quantity {
		delete(m.positions, req.Symbol)
	} else {
		pos.Quantity -= req.Quantity
	}

	trade := m.appendTradeLocked(req, realized)
	if err := m.checkInvariantLocked(); err != nil {
		return models.Trade{}, err
	}
	return trade, nil
}

func (m *Manager) appendTradeLocked(req TradeRequest, realized float64) models.Trade {
	trade := models.Trade{
		ID:          m.newID(),
		Symbol:      req.Symbol,
		Side:        req.Side,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Commission:  req.Commission,
		Timestamp:   req.Timestamp,
		RealizedPnL: realized,
		Reason:      req.Reason,
	}
	m.trades = append(m.trades, trade)
	return trade
}

// checkInvariantLocked recomputes equity from scratch and compares it
// with the incrementally maintained value.
func (m *Manager) checkInvariantLocked() error {
	var positionValue float64
	for sym, pos := range m.positions {
		positionValue += float64(pos.Quantity) * m.marks[sym]
	}
	if math.Abs(m.cash+positionValue-m.equity) > invariantTolerance {
		err := &apperrors.LedgerError{
			Cash:          m.cash,
			PositionValue: positionValue,
			Equity:        m.equity,
		}
		m.logger.Error().Err(err).Msg("Ledger invariant violated")
		return err
	}
	return nil
}

// Cash returns the current cash balance.
func (m *Manager) Cash() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cash
}

// Equity returns the current total equity.
func (m *Manager) Equity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.equity
}

// Position returns a copy of the open position for the symbol.
func (m *Manager) Position(symbol string) (models.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[symbol]
	if !ok {
		return models.Position{}, false
	}
	return *pos, true
}

// OpenPositionCount returns the number of open positions.
func (m *Manager) OpenPositionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

// Snapshot returns a copy-on-read view of the ledger. The returned
// value shares no mutable state with the manager.
func (m *Manager) Snapshot(asOf time.Time) models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	positions := make([]models.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		positions = append(positions, *pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})

	trades := make([]models.Trade, len(m.trades))
	copy(trades, m.trades)

	return models.Snapshot{
		AsOf:      asOf,
		Cash:      m.cash,
		Equity:    m.equity,
		Positions: positions,
		Trades:    trades,
	}
}
