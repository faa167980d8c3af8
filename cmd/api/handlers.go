package main

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wms-platform/reallocation-service/internal/application"
	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/pkg/errors"
	"github.com/wms-platform/reallocation-service/pkg/logging"
	"github.com/wms-platform/reallocation-service/pkg/middleware"
)

type requestReallocationRequest struct {
	MaterialID  string      `json:"materialId" binding:"required,max=128,safe_string"`
	From        string      `json:"from" binding:"required,consumer_ref"`
	To          string      `json:"to" binding:"required,consumer_ref"`
	Quantity    json.Number `json:"quantity" binding:"required,positive_decimal"`
	Reason      string      `json:"reason" binding:"max=500,safe_string"`
	RequestedBy string      `json:"requestedBy" binding:"required,max=128,safe_string"`
}

type approvalRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Approver string `json:"approver" binding:"required,max=128,safe_string"`
	Notes    string `json:"notes" binding:"max=500,safe_string"`
}

type batchActionRequest struct {
	From     string      `json:"from" binding:"omitempty,consumer_ref"`
	To       string      `json:"to" binding:"omitempty,consumer_ref"`
	Quantity json.Number `json:"quantity" binding:"required,numeric"`
	Reason   string      `json:"reason" binding:"max=500,safe_string"`
	Priority string      `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
}

type batchRequest struct {
	PerformedBy string               `json:"performedBy" binding:"required,max=128,safe_string"`
	Actions     []batchActionRequest `json:"actions" binding:"required,min=1,max=100,dive"`
}

type historyQuery struct {
	MaterialID string `form:"materialId" binding:"max=128,safe_string"`
	ConsumerID string `form:"consumerId" binding:"omitempty,consumer_ref"`
	Status     string `form:"status" binding:"omitempty,reallocation_status"`
}

// respondError maps an engine error onto the API error taxonomy
func respondError(responder *middleware.ErrorResponder, err error) {
	responder.RespondWithAppError(application.ToAppError(err))
}

func getAllocationsHandler(service *application.AllocationQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		summaries, err := service.GetConsumerAllocations(c.Request.Context(), c.Param("materialId"))
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"materialId":  c.Param("materialId"),
			"allocations": summaries,
		})
	}
}

func requestReallocationHandler(service *application.ReallocationCoordinator, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req requestReallocationRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd, err := req.toCommand()
		if err != nil {
			respondError(responder, err)
			return
		}

		request, err := service.RequestReallocation(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, application.ToReallocationDTO(request))
	}
}

func (r requestReallocationRequest) toCommand() (application.RequestReallocationCommand, error) {
	from, err := domain.ParseConsumerRef(r.From)
	if err != nil {
		return application.RequestReallocationCommand{}, err
	}
	to, err := domain.ParseConsumerRef(r.To)
	if err != nil {
		return application.RequestReallocationCommand{}, err
	}
	quantity, err := decimal.NewFromString(r.Quantity.String())
	if err != nil {
		return application.RequestReallocationCommand{}, domain.NewValidationError("quantity must be a decimal number")
	}

	return application.RequestReallocationCommand{
		MaterialID:  r.MaterialID,
		From:        from,
		To:          to,
		Quantity:    quantity,
		Reason:      r.Reason,
		RequestedBy: r.RequestedBy,
	}, nil
}

func approveReallocationHandler(service *application.ReallocationCoordinator, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req approvalRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		request, err := service.ApproveReallocation(c.Request.Context(), application.ApproveReallocationCommand{
			RequestID: c.Param("requestId"),
			Approved:  *req.Approved,
			Approver:  req.Approver,
			Notes:     req.Notes,
		})
		if err != nil {
			// a compensated commit still returns the reverted request so the caller can retry
			var failure *domain.CommitFailure
			if stderrors.As(err, &failure) && request != nil {
				responder.RespondWithAppErrorAndData(application.ToAppError(err), application.ToReallocationDTO(request))
				return
			}
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, application.ToReallocationDTO(request))
	}
}

func getReallocationHandler(service *application.ReallocationCoordinator, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		request, err := service.GetReallocation(c.Request.Context(), c.Param("requestId"))
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, application.ToReallocationDTO(request))
	}
}

func listReallocationsHandler(service *application.ReallocationCoordinator, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var query historyQuery
		if appErr := middleware.BindQueryAndValidate(c, &query); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		requests, err := service.GetReallocationHistory(c.Request.Context(), application.GetReallocationHistoryQuery{
			MaterialID: query.MaterialID,
			ConsumerID: query.ConsumerID,
			Status:     query.Status,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"reallocations": application.ToReallocationDTOs(requests),
			"total":         len(requests),
		})
	}
}

func applyBatchHandler(planner *application.BatchReallocationPlanner, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req batchRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		actions := make([]application.BatchAction, len(req.Actions))
		for i, a := range req.Actions {
			action, err := a.toAction()
			if err != nil {
				responder.RespondWithAppError(errors.ErrValidation(err.Error()).WithDetail("index", strconv.Itoa(i)))
				return
			}
			actions[i] = action
		}

		result, err := planner.ApplyReallocations(c.Request.Context(), application.ApplyReallocationsCommand{
			MaterialID:  c.Param("materialId"),
			Actions:     actions,
			PerformedBy: req.PerformedBy,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		// partial application is reported in the body, not as an HTTP failure
		c.JSON(http.StatusOK, result)
	}
}

func (a batchActionRequest) toAction() (application.BatchAction, error) {
	var action application.BatchAction
	if a.From != "" {
		from, err := domain.ParseConsumerRef(a.From)
		if err != nil {
			return action, err
		}
		action.From = &from
	}
	if a.To != "" {
		to, err := domain.ParseConsumerRef(a.To)
		if err != nil {
			return action, err
		}
		action.To = &to
	}
	quantity, err := decimal.NewFromString(a.Quantity.String())
	if err != nil {
		return action, stderrors.New("quantity must be a decimal number")
	}
	action.Quantity = quantity
	action.Reason = a.Reason
	action.Priority = a.Priority
	return action, nil
}
