package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jetvision/broker-backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const flightRequestColumns = `id, iso_id, iso_name, client_name, client_email, client_phone,
	departure, arrival, departure_date, departure_time, return_date, return_time,
	passengers, special_requests, status,
	avinode_trip_id, avinode_trip_href, avinode_search_link, avinode_view_link,
	avinode_rfq_ids, avinode_quote_ids, avinode_quote_count, avinode_best_quote_id,
	avinode_best_quote_amount, avinode_best_quote_currency, avinode_first_quote_at,
	avinode_last_sync_at, avinode_sla_due_at, avinode_sla_status, avinode_status, last_sync_error,
	selected_quote_id, selected_quote_amount, iso_commission, jetvision_cost,
	total_price, proposal_notes, proposal_sent_at, client_decision_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlightRequest(row rowScanner) (models.FlightRequest, error) {
	var fr models.FlightRequest
	var (
		departureTime, returnDate, returnTime, specialRequests   *string
		tripID, tripHref, searchLink, viewLink                   *string
		bestQuoteID, bestQuoteCurrency, slaStatus, lastSyncError *string
		selectedQuoteID, proposalNotes                           *string
	)
	err := row.Scan(
		&fr.ID, &fr.ISOID, &fr.ISOName, &fr.ClientName, &fr.ClientEmail, &fr.ClientPhone,
		&fr.Departure, &fr.Arrival, &fr.DepartureDate, &departureTime, &returnDate, &returnTime,
		&fr.Passengers, &specialRequests, &fr.Status,
		&tripID, &tripHref, &searchLink, &viewLink,
		&fr.AvinodeRFQIDs, &fr.AvinodeQuoteIDs, &fr.AvinodeQuoteCount, &bestQuoteID,
		&fr.AvinodeBestQuoteAmount, &bestQuoteCurrency, &fr.AvinodeFirstQuoteAt,
		&fr.AvinodeLastSyncAt, &fr.AvinodeSLADueAt, &slaStatus, &fr.AvinodeStatus, &lastSyncError,
		&selectedQuoteID, &fr.SelectedQuoteAmount, &fr.ISOCommission, &fr.JetvisionCost,
		&fr.TotalPrice, &proposalNotes, &fr.ProposalSentAt, &fr.ClientDecisionAt,
		&fr.CreatedAt, &fr.UpdatedAt,
	)
	if err != nil {
		return models.FlightRequest{}, err
	}
	fr.DepartureTime = deref(departureTime)
	fr.ReturnDate = deref(returnDate)
	fr.ReturnTime = deref(returnTime)
	fr.SpecialRequests = deref(specialRequests)
	fr.AvinodeTripID = deref(tripID)
	fr.AvinodeTripHref = deref(tripHref)
	fr.AvinodeSearchLink = deref(searchLink)
	fr.AvinodeViewLink = deref(viewLink)
	fr.AvinodeBestQuoteID = deref(bestQuoteID)
	fr.AvinodeBestQuoteCurrency = deref(bestQuoteCurrency)
	fr.AvinodeSLAStatus = models.SLAStatus(deref(slaStatus))
	fr.LastSyncError = deref(lastSyncError)
	fr.SelectedQuoteID = deref(selectedQuoteID)
	fr.ProposalNotes = deref(proposalNotes)
	return fr, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (s *Store) CreateFlightRequest(ctx context.Context, fr models.FlightRequest) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO flight_requests (
			id, iso_id, iso_name, client_name, client_email, client_phone,
			departure, arrival, departure_date, departure_time, return_date, return_time,
			passengers, special_requests, status, avinode_rfq_ids, avinode_quote_ids,
			avinode_status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`,
		fr.ID, fr.ISOID, fr.ISOName, fr.ClientName, fr.ClientEmail, fr.ClientPhone,
		fr.Departure, fr.Arrival, fr.DepartureDate, nullable(fr.DepartureTime),
		nullable(fr.ReturnDate), nullable(fr.ReturnTime),
		fr.Passengers, nullable(fr.SpecialRequests), fr.Status,
		[]string{}, []string{}, fr.AvinodeStatus, fr.CreatedAt, fr.UpdatedAt,
	)
	return err
}

func (s *Store) GetFlightRequest(ctx context.Context, id string) (models.FlightRequest, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+flightRequestColumns+` FROM flight_requests WHERE id = $1`, id)
	return scanFlightRequest(row)
}

func (s *Store) ListFlightRequests(ctx context.Context, status string, isoID string, limit, offset int) ([]models.FlightRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + flightRequestColumns + ` FROM flight_requests`
	var args []any
	var wheres []string
	if status != "" {
		args = append(args, status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if isoID != "" {
		args = append(args, isoID)
		wheres = append(wheres, fmt.Sprintf("iso_id = $%d", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FlightRequest
	for rows.Next() {
		fr, err := scanFlightRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}

// UpdateSyncState persists everything a sync run computed in a single UPDATE,
// so re-running against unchanged remote data rewrites identical values.
func (s *Store) UpdateSyncState(ctx context.Context, id string, st models.SyncState) (models.FlightRequest, error) {
	rfqIDs := st.RFQIDs
	if rfqIDs == nil {
		rfqIDs = []string{}
	}
	quoteIDs := st.QuoteIDs
	if quoteIDs == nil {
		quoteIDs = []string{}
	}
	row := s.Pool.QueryRow(ctx, `
		UPDATE flight_requests SET
			avinode_rfq_ids = $2,
			avinode_quote_ids = $3,
			avinode_quote_count = $4,
			avinode_best_quote_id = $5,
			avinode_best_quote_amount = $6,
			avinode_best_quote_currency = $7,
			avinode_first_quote_at = $8,
			avinode_sla_due_at = $9,
			avinode_sla_status = $10,
			avinode_status = $11,
			avinode_last_sync_at = $12,
			last_sync_error = $13,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+flightRequestColumns,
		id, rfqIDs, quoteIDs, st.QuoteCount, nullable(st.BestQuoteID),
		st.BestQuoteAmount, nullable(st.BestQuoteCurrency), st.FirstQuoteAt,
		st.SLADueAt, st.SLAStatus, st.AvinodeStatus, st.LastSyncAt, nullable(st.LastSyncError),
	)
	return scanFlightRequest(row)
}

func (s *Store) SetLastSyncError(ctx context.Context, id string, message string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE flight_requests SET last_sync_error = $2, updated_at = NOW() WHERE id = $1`, id, nullable(message))
	return err
}

// SetTripLinks records the created marketplace trip and its deep links.
func (s *Store) SetTripLinks(ctx context.Context, id, tripID, tripHref, searchLink, viewLink string, status models.AvinodeStatus) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE flight_requests SET
			avinode_trip_id = $2,
			avinode_trip_href = $3,
			avinode_search_link = $4,
			avinode_view_link = $5,
			avinode_status = $6,
			updated_at = NOW()
		WHERE id = $1
	`, id, nullable(tripID), nullable(tripHref), nullable(searchLink), nullable(viewLink), status)
	return err
}

// AppendRFQID attaches an RFQ id with set semantics and bumps the sourcing
// status to rfq_sent unless it is already further along.
func (s *Store) AppendRFQID(ctx context.Context, id, rfqID string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE flight_requests SET
			avinode_rfq_ids = CASE
				WHEN avinode_rfq_ids @> ARRAY[$2]::text[] THEN avinode_rfq_ids
				ELSE array_append(avinode_rfq_ids, $2)
			END,
			avinode_status = CASE
				WHEN avinode_status IN ('not_sent', 'sent_to_avinode') THEN 'rfq_sent'
				ELSE avinode_status
			END,
			updated_at = NOW()
		WHERE id = $1
	`, id, rfqID)
	return err
}

// SaveTransition writes the pipeline status together with whichever proposal
// fields the transition touched.
func (s *Store) SaveTransition(ctx context.Context, fr models.FlightRequest) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE flight_requests SET
			status = $2,
			avinode_status = $3,
			selected_quote_id = $4,
			selected_quote_amount = $5,
			iso_commission = $6,
			jetvision_cost = $7,
			total_price = $8,
			proposal_notes = $9,
			proposal_sent_at = $10,
			client_decision_at = $11,
			updated_at = NOW()
		WHERE id = $1
	`,
		fr.ID, fr.Status, fr.AvinodeStatus,
		nullable(fr.SelectedQuoteID), fr.SelectedQuoteAmount,
		fr.ISOCommission, fr.JetvisionCost, fr.TotalPrice,
		nullable(fr.ProposalNotes), fr.ProposalSentAt, fr.ClientDecisionAt,
	)
	return err
}

func (s *Store) FindByTripID(ctx context.Context, tripID string) (models.FlightRequest, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+flightRequestColumns+` FROM flight_requests WHERE avinode_trip_id = $1`, tripID)
	return scanFlightRequest(row)
}

// FindByTripRef matches a partial or legacy trip identifier against the
// stored deep links.
func (s *Store) FindByTripRef(ctx context.Context, ref string) (models.FlightRequest, error) {
	pattern := "%" + ref + "%"
	row := s.Pool.QueryRow(ctx, `
		SELECT `+flightRequestColumns+` FROM flight_requests
		WHERE avinode_trip_href ILIKE $1 OR avinode_search_link ILIKE $1
		ORDER BY created_at DESC LIMIT 1
	`, pattern)
	return scanFlightRequest(row)
}

// ListActiveForSync returns requests still in an active sourcing state; the
// periodic poller feeds these back through the synchronizer.
func (s *Store) ListActiveForSync(ctx context.Context) ([]models.FlightRequest, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+flightRequestColumns+` FROM flight_requests
		WHERE status IN ('rfq_submitted', 'quote_received')
		   OR avinode_status IN ('sent_to_avinode', 'rfq_sent')
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FlightRequest
	for rows.Next() {
		fr, err := scanFlightRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}

func (s *Store) InsertNotification(ctx context.Context, n models.Notification) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO notifications (id, flight_request_id, role, kind, message, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, n.ID, n.FlightRequestID, n.Role, n.Kind, n.Message, n.Read, n.CreatedAt)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, role models.Role, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, flight_request_id, role, kind, message, read, created_at FROM notifications`
	var args []any
	var wheres []string
	if role != "" {
		args = append(args, role)
		wheres = append(wheres, fmt.Sprintf("role = $%d", len(args)))
	}
	if unreadOnly {
		wheres = append(wheres, "read = FALSE")
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.FlightRequestID, &n.Role, &n.Kind, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	return err
}
