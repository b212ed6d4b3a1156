package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/gjmugshots/internal/config"
	"github.com/your-org/gjmugshots/internal/models"
)

const bookingColumns = `id, first_name, middle_name, last_name, gender, date_of_birth,
	address, booking_date, booking_time, raw_arrestor, charges, source_pdf, image_path, created_at`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(&b.ID, &b.FirstName, &b.MiddleName, &b.LastName, &b.Gender,
		&b.DateOfBirth, &b.Address, &b.BookingDate, &b.BookingTime,
		&b.ArrestingOfficer, &b.Charges, &b.SourcePDF, &b.ImagePath, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]models.Booking, error) {
	defer rows.Close()
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return bookings, nil
}

// ListBookings returns every booking row, newest id first. Used by the
// snapshot builder, which needs the complete table in one pass.
func (s *PostgresStore) ListBookings(ctx context.Context) ([]models.Booking, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return collectBookings(rows)
}

// CountBookings returns the table total, fetched independently of
// ListBookings so the snapshot builder can sanity-check its row count.
func (s *PostgresStore) CountBookings(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

// GetBooking returns the row with the given id, or nil if absent.
func (s *PostgresStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := scanBooking(s.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListBookingsForPerson returns every booking matching the person
// identity (first name, last name, date of birth), newest first.
func (s *PostgresStore) ListBookingsForPerson(ctx context.Context, firstName, lastName string, dob *string) ([]models.Booking, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE first_name = $1 AND last_name = $2 AND date_of_birth IS NOT DISTINCT FROM $3
		 ORDER BY booking_date DESC`,
		firstName, lastName, dob)
	if err != nil {
		return nil, fmt.Errorf("list bookings for person: %w", err)
	}
	return collectBookings(rows)
}

// SearchFilter holds the already-validated search parameters. Nil
// pointers mean "not filtered". Limit and Offset are assumed clamped by
// the caller.
type SearchFilter struct {
	FirstName   *string
	MiddleName  *string
	LastName    *string
	Address     *string
	Gender      *string
	AgeMin      *int
	AgeMax      *int
	DateOfBirth *string // MM/DD/YYYY, matching the stored format
	BookingDate *string // YYYY-MM-DD, exact day
	BookingFrom *string // YYYY-MM-DD
	BookingTo   *string // YYYY-MM-DD
	Limit       int
	Offset      int
}

// dobAsDate converts the stored MM/DD/YYYY text column for age math.
const dobAsDate = `date_of_birth IS NOT NULL AND date_of_birth <> '' AND
	date_part('year', age(to_date(date_of_birth, 'MM/DD/YYYY')))`

// SearchBookings runs a parameterized AND-combined filter query,
// ordered by booking date descending, then last name, then first name.
func (s *PostgresStore) SearchBookings(ctx context.Context, f SearchFilter) ([]models.Booking, error) {
	conds := []string{"1=1"}
	var args []any

	add := func(format string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if f.FirstName != nil {
		add("first_name ILIKE $%d", "%"+*f.FirstName+"%")
	}
	if f.MiddleName != nil {
		add("middle_name ILIKE $%d", "%"+*f.MiddleName+"%")
	}
	if f.LastName != nil {
		add("last_name ILIKE $%d", "%"+*f.LastName+"%")
	}
	if f.Address != nil {
		add("address ILIKE $%d", "%"+*f.Address+"%")
	}
	if f.Gender != nil {
		add("gender = $%d", *f.Gender)
	}
	if f.DateOfBirth != nil {
		add("date_of_birth = $%d", *f.DateOfBirth)
	}
	if f.AgeMin != nil {
		add(dobAsDate+" >= $%d", *f.AgeMin)
	}
	if f.AgeMax != nil {
		add(dobAsDate+" <= $%d", *f.AgeMax)
	}
	if f.BookingDate != nil {
		add("booking_date::date = $%d::date", *f.BookingDate)
	}
	if f.BookingFrom != nil {
		add("booking_date >= $%d::date", *f.BookingFrom)
	}
	if f.BookingTo != nil {
		add("booking_date <= $%d::date", *f.BookingTo)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM bookings WHERE %s
		 ORDER BY booking_date DESC, last_name, first_name
		 LIMIT %d OFFSET %d`,
		bookingColumns, strings.Join(conds, " AND "), f.Limit, f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search bookings: %w", err)
	}
	return collectBookings(rows)
}
