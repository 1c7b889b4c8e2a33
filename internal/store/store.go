package store

import (
	"context"
	"database/sql"
	"time"
)

type Store struct {
	DB *sql.DB
}

type MessageRow struct {
	ID        int64
	Titulo    string
	Texto     string
	CreatedAt time.Time
}

type CampaignRow struct {
	JobID      string
	MensagemID int64
	Total      int
	Enviados   int
	Falhas     int
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New(db *sql.DB) *Store { return &Store{DB: db} }

func (s *Store) InsertMessage(ctx context.Context, titulo, texto string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO mensagens (titulo, texto)
		VALUES ($1,$2) RETURNING id
	`, titulo, texto).Scan(&id)
	return id, err
}

func (s *Store) GetMessage(ctx context.Context, id int64) (MessageRow, error) {
	var m MessageRow
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, titulo, texto, created_at
		FROM mensagens
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Titulo, &m.Texto, &m.CreatedAt)
	if err != nil {
		return MessageRow{}, err
	}
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context) ([]MessageRow, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, titulo, texto, created_at
		FROM mensagens
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var m MessageRow
		if err := rows.Scan(&m.ID, &m.Titulo, &m.Texto, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) InsertCampaignQueued(ctx context.Context, jobID string, mensagemID int64, total int) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO campanhas (job_id, mensagem_id, total, status)
		VALUES ($1,$2,$3,'queued')
	`, jobID, mensagemID, total)
	return err
}

func (s *Store) MarkCampaignRunning(ctx context.Context, jobID string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE campanhas
		   SET status='running', updated_at=NOW()
		 WHERE job_id=$1
	`, jobID)
	return err
}

func (s *Store) FinishCampaign(ctx context.Context, jobID string, enviados, falhas int, status string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE campanhas
		   SET enviados=$1, falhas=$2, status=$3, updated_at=NOW()
		 WHERE job_id=$4
	`, enviados, falhas, status, jobID)
	return err
}

func (s *Store) GetCampaign(ctx context.Context, jobID string) (CampaignRow, error) {
	var c CampaignRow
	err := s.DB.QueryRowContext(ctx, `
		SELECT job_id, mensagem_id, total, enviados, falhas, status, created_at, updated_at
		FROM campanhas
		WHERE job_id = $1
	`, jobID).Scan(&c.JobID, &c.MensagemID, &c.Total, &c.Enviados, &c.Falhas, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return CampaignRow{}, err
	}
	return c, nil
}
