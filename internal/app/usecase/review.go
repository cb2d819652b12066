package usecase

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"polaroid/internal/app"
	"polaroid/internal/app/models"
	"polaroid/internal/utils/logger"
	"polaroid/internal/utils/validate"
)

type ReviewUsecase struct {
	reviewRepository app.ReviewRepository
	now              func() time.Time
}

func CreateReviewUsecase(reviewRepository app.ReviewRepository) *ReviewUsecase {
	return &ReviewUsecase{
		reviewRepository: reviewRepository,
		now:              time.Now,
	}
}

func (u *ReviewUsecase) ListReviews(ctx context.Context) ([]models.Review, error) {
	const funcName = "ReviewUsecase.ListReviews"
	logger.Debug("listing reviews",
		zap.String("function", funcName),
	)

	reviews, err := u.reviewRepository.ListReviews(ctx)
	if err != nil {
		logger.Error("failed to list reviews",
			zap.String("function", funcName),
			zap.Error(err),
		)
		return nil, err
	}

	return reviews, nil
}

func (u *ReviewUsecase) AddReview(ctx context.Context, req models.AddReviewRequest) (*models.Review, error) {
	const funcName = "ReviewUsecase.AddReview"
	logger.Debug("adding review",
		zap.String("function", funcName),
		zap.String("name", req.Name),
		zap.Int("rating", req.Rating),
	)

	if err := validate.ValidateReview(req); err != nil {
		return nil, err
	}

	createdAt := u.now().UTC()
	review := models.Review{
		ID:      strconv.FormatInt(createdAt.UnixMilli(), 10),
		Name:    req.Name,
		Comment: req.Comment,
		Rating:  req.Rating,
		Date:    createdAt.Format(time.RFC3339),
	}

	if err := u.reviewRepository.AddReview(ctx, review); err != nil {
		logger.Error("failed to add review",
			zap.String("function", funcName),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Info("review added",
		zap.String("function", funcName),
		zap.String("review_id", review.ID),
	)

	return &review, nil
}
