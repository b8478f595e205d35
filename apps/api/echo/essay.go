package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/allii5/TextInsight/core"
	"github.com/allii5/TextInsight/core/essay"
)

type essayApi struct {
	svc *essay.Service
}

func registerEssayAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *essay.Service) {
	api := essayApi{svc: svc}

	eg := g.Group("/essays", jwt, studentMiddleware())
	eg.POST("", api.submit)
	eg.GET("", api.history)
	eg.GET("/pending", api.pending)
	eg.GET("/:id", api.retrieve)
	eg.GET("/:id/feedback", api.feedback)
	eg.GET("/progress/:assignmentID", api.progress)
}

func (api *essayApi) submit(ctx echo.Context) error {
	var data essay.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	fb, err := api.svc.Submit(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, fb)
}

func (api *essayApi) history(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	subs, err := api.svc.SubmissionHistory(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "fetching submission history")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *essayApi) pending(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	pending, err := api.svc.PendingAssignments(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "fetching pending assignments")
	}
	return ctx.JSON(http.StatusOK, pending)
}

func (api *essayApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if sub.StudentID != claims.Subject {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *essayApi) feedback(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	fb, err := api.svc.FeedbackForSubmission(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, fb)
}

func (api *essayApi) progress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.ProgressForAssignment(ctx.Request().Context(), claims.Subject, ctx.Param("assignmentID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}
