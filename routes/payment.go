package routes

import (
	"github.com/kataras/iris/v12"

	"github.com/prabhashwara07/IntelliStay-sub001/services"
	"github.com/prabhashwara07/IntelliStay-sub001/utils"
)

// Wired once from main before the server starts listening.
var (
	paymentSigner *services.Signer
	reconciler    *services.ReconciliationService
	bookingStore  services.BookingStore
)

func InitPayments(signer *services.Signer, recon *services.ReconciliationService, store services.BookingStore) {
	paymentSigner = signer
	reconciler = recon
	bookingStore = store
}

// PaymentNotify is the gateway's server-to-server callback. It is the only
// unauthenticated write-ish endpoint in the app, so nothing here is trusted
// until the reconciliation service has verified the signature. The response
// code drives gateway retry behavior: 200 acknowledges receipt (including
// idempotent replays), anything else tells the gateway the delivery was not
// handled.
func PaymentNotify(ctx iris.Context) {
	notification := services.Notification{
		MerchantID: ctx.PostValue("merchant_id"),
		OrderRef:   ctx.PostValue("order_id"),
		Amount:     ctx.PostValue("payhere_amount"),
		Currency:   ctx.PostValue("payhere_currency"),
		StatusCode: ctx.PostValue("status_code"),
		Signature:  ctx.PostValue("md5sig"),
	}

	if notification.OrderRef == "" || notification.StatusCode == "" || notification.Signature == "" {
		utils.JSONError(ctx, iris.StatusBadRequest, string(services.RejectMalformed), "Missing required notification fields")
		return
	}

	ack := reconciler.Reconcile(ctx.Request().Context(), notification)

	if !ack.Processed {
		status := iris.StatusBadRequest
		if ack.Reason == services.RejectInternal {
			status = iris.StatusInternalServerError
		}
		utils.JSONError(ctx, status, string(ack.Reason), "Notification rejected")
		return
	}

	ctx.JSON(iris.Map{
		"status": "received",
		"replay": ack.Replay,
	})
}
