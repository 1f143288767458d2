// Package generation управляет жизненным циклом запросов на генерацию:
// списание токенов и создание запроса, статус, удаление с возвратом токенов,
// история и обработка результатов от бэкенда генерации.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/magabrotheeeer/cortex/internal/lib/metrics"
	"github.com/magabrotheeeer/cortex/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
	"github.com/magabrotheeeer/cortex/internal/models"
)

// Ограничения запроса.
const (
	MinPromptLength     = 3
	MaxPromptLength     = 500
	DefaultHistoryLimit = 50
)

// Repository описывает операции хранилища над запросами и их изображениями.
type Repository interface {
	CreateGenerationRequest(ctx context.Context, req models.GenerationRequest) (int64, error)
	GetGenerationRequest(ctx context.Context, accountID, requestID int64) (*models.GenerationRequest, error)
	LockGenerationRequest(ctx context.Context, requestID int64) (*models.GenerationRequest, error)
	SetGenerationStatus(ctx context.Context, requestID int64, status string, errorMessage *string) error
	DeleteGenerationRequest(ctx context.Context, requestID int64) error
	ListGenerationHistory(ctx context.Context, accountID int64, limit int) ([]models.GenerationHistoryItem, error)
	CreateImage(ctx context.Context, img models.GeneratedImage) (int64, error)
	GetRequestImage(ctx context.Context, requestID int64) (*models.GeneratedImage, error)
	DetachRequestImages(ctx context.Context, requestID int64) error
}

// Transactor выполняет функцию в одной транзакции хранилища.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Ledger списывает и возвращает токены.
type Ledger interface {
	Deduct(ctx context.Context, accountID, amount int64) (bool, error)
	Refund(ctx context.Context, accountID, amount int64) error
}

// Dispatcher передаёт задание бэкенду генерации.
type Dispatcher interface {
	Dispatch(ctx context.Context, job models.GenerationJob) error
}

// Service реализует жизненный цикл запросов на генерацию.
type Service struct {
	repo       Repository
	tx         Transactor
	ledger     Ledger
	dispatcher Dispatcher
	log        *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, tx Transactor, ledger Ledger, dispatcher Dispatcher, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		tx:         tx,
		ledger:     ledger,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Create проверяет запрос, списывает его стоимость и сохраняет запрос в статусе processing.
// После фиксации транзакции задание отправляется бэкенду генерации.
func (s *Service) Create(ctx context.Context, accountID int64, in models.GenerationCreateRequest) (*models.GenerationCreated, error) {
	const op = "generation.Create"

	requestType, err := validate(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cost := models.GenerationCost(requestType)

	var requestID int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.ledger.Deduct(ctx, accountID, cost)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrInsufficientTokens
		}
		requestID, err = s.repo.CreateGenerationRequest(ctx, models.GenerationRequest{
			AccountID:     accountID,
			RequestType:   requestType,
			Prompt:        in.Prompt,
			InputImageURL: in.InputImageURL,
			TokensUsed:    &cost,
			Status:        models.GenerationPending,
			Style:         in.Style,
			Resolution:    models.DefaultResolution,
		})
		if err != nil {
			return err
		}
		return s.repo.SetGenerationStatus(ctx, requestID, models.GenerationProcessing, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.TokensDeducted.Add(float64(cost))
	metrics.GenerationRequests.WithLabelValues(requestType).Inc()

	job := models.GenerationJob{
		RequestID:     requestID,
		AccountID:     accountID,
		RequestType:   requestType,
		Prompt:        in.Prompt,
		Style:         in.Style,
		Resolution:    models.DefaultResolution,
		InputImageURL: in.InputImageURL,
	}
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		s.log.Error("failed to dispatch generation job", slog.Int64("request_id", requestID), sl.Err(err))
	}

	return &models.GenerationCreated{
		RequestID:  requestID,
		TokensUsed: cost,
		Status:     models.GenerationProcessing,
	}, nil
}

func validate(in models.GenerationCreateRequest) (string, error) {
	if _, ok := models.Styles[in.Style]; !ok {
		return "", models.ErrInvalidStyle
	}
	requestType := in.RequestType
	switch requestType {
	case "":
		requestType = models.RequestGeneration
	case models.RequestGeneration, models.RequestStyle, models.RequestColorization:
	default:
		return "", models.ErrInvalidRequestType
	}
	if n := utf8.RuneCountInString(in.Prompt); n < MinPromptLength || n > MaxPromptLength {
		return "", models.ErrInvalidPrompt
	}
	return requestType, nil
}

// Status возвращает состояние запроса владельца. Ссылки на изображение
// заполняются только для завершённых запросов.
func (s *Service) Status(ctx context.Context, accountID, requestID int64) (*models.GenerationStatus, error) {
	const op = "generation.Status"

	req, err := s.repo.GetGenerationRequest(ctx, accountID, requestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	status := &models.GenerationStatus{
		ID:           req.ID,
		Status:       req.Status,
		RequestType:  req.RequestType,
		Prompt:       req.Prompt,
		Style:        req.Style,
		TokensUsed:   req.TokensUsed,
		ErrorMessage: req.ErrorMessage,
		CreatedAt:    req.CreatedAt,
	}
	if req.Status != models.GenerationCompleted {
		return status, nil
	}

	img, err := s.repo.GetRequestImage(ctx, req.ID)
	switch {
	case errors.Is(err, models.ErrImageNotFound):
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	default:
		status.ImageURL = &img.ImageURL
		status.OriginalURL = img.OriginalURL
	}
	return status, nil
}

// Delete удаляет запрос владельца. Токены возвращаются, если запрос
// ещё не начал обрабатываться или завершился ошибкой. Возвращает число
// возвращённых токенов.
func (s *Service) Delete(ctx context.Context, accountID, requestID int64) (int64, error) {
	const op = "generation.Delete"

	var refunded int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.repo.LockGenerationRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.AccountID != accountID {
			return models.ErrGenerationNotFound
		}
		if refundable(req) {
			if err := s.ledger.Refund(ctx, accountID, *req.TokensUsed); err != nil {
				return err
			}
			refunded = *req.TokensUsed
		}
		if err := s.repo.DetachRequestImages(ctx, requestID); err != nil {
			return err
		}
		return s.repo.DeleteGenerationRequest(ctx, requestID)
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if refunded > 0 {
		metrics.TokensRefunded.Add(float64(refunded))
	}
	return refunded, nil
}

func refundable(req *models.GenerationRequest) bool {
	if req.TokensUsed == nil || *req.TokensUsed <= 0 {
		return false
	}
	return req.Status == models.GenerationPending || req.Status == models.GenerationFailed
}

// History возвращает последние запросы владельца, новые первыми.
func (s *Service) History(ctx context.Context, accountID int64, limit int) ([]models.GenerationHistoryItem, error) {
	const op = "generation.History"
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	items, err := s.repo.ListGenerationHistory(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// Complete переводит запрос в completed и сохраняет изображение в галерею.
func (s *Service) Complete(ctx context.Context, requestID int64, imageURL, originalURL string) error {
	const op = "generation.Complete"

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.lockInFlight(ctx, requestID)
		if err != nil {
			return err
		}
		if err := s.repo.SetGenerationStatus(ctx, requestID, models.GenerationCompleted, nil); err != nil {
			return err
		}
		img := models.GeneratedImage{
			AccountID: req.AccountID,
			RequestID: &req.ID,
			ImageURL:  imageURL,
		}
		if originalURL != "" {
			img.OriginalURL = &originalURL
		}
		_, err = s.repo.CreateImage(ctx, img)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.GenerationResults.WithLabelValues(models.GenerationCompleted).Inc()
	return nil
}

// Fail переводит запрос в failed с сообщением об ошибке.
func (s *Service) Fail(ctx context.Context, requestID int64, message string) error {
	const op = "generation.Fail"

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockInFlight(ctx, requestID); err != nil {
			return err
		}
		return s.repo.SetGenerationStatus(ctx, requestID, models.GenerationFailed, &message)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.GenerationResults.WithLabelValues(models.GenerationFailed).Inc()
	return nil
}

func (s *Service) lockInFlight(ctx context.Context, requestID int64) (*models.GenerationRequest, error) {
	req, err := s.repo.LockGenerationRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.GenerationPending && req.Status != models.GenerationProcessing {
		return nil, fmt.Errorf("%w: request %d is %s", models.ErrInvalidTransition, requestID, req.Status)
	}
	return req, nil
}

// HandleResult обрабатывает сообщение из очереди результатов.
// Неразбираемые сообщения отбрасываются, повторные и устаревшие результаты подтверждаются без изменений.
func (s *Service) HandleResult(ctx context.Context, body []byte) error {
	const op = "generation.HandleResult"

	var res models.GenerationResult
	if err := json.Unmarshal(body, &res); err != nil {
		return fmt.Errorf("%s: %w: %v", op, rabbitmq.ErrDiscard, err)
	}

	var err error
	switch res.Status {
	case models.GenerationCompleted:
		if res.ImageURL == "" {
			return fmt.Errorf("%s: %w: empty image url for request %d", op, rabbitmq.ErrDiscard, res.RequestID)
		}
		err = s.Complete(ctx, res.RequestID, res.ImageURL, res.OriginalURL)
	case models.GenerationFailed:
		msg := res.ErrorMessage
		if msg == "" {
			msg = "generation failed"
		}
		err = s.Fail(ctx, res.RequestID, msg)
	default:
		return fmt.Errorf("%s: %w: unknown status %q", op, rabbitmq.ErrDiscard, res.Status)
	}

	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidTransition) {
		s.log.Warn("generation result ignored", slog.Int64("request_id", res.RequestID), sl.Err(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
