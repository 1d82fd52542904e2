package domain

// Message keys. Localized text is owned by the transport.
const (
	MsgCartAdded        = "CART_ADDED"
	MsgCartDecreased    = "CART_DECREASED"
	MsgCartItemRemoved  = "CART_ITEM_REMOVED"
	MsgCartItemNotFound = "CART_ITEM_NOT_FOUND"
	MsgCartEmpty        = "CART_EMPTY"
	MsgCartGuide        = "CART_GUIDE"
	MsgStockEmpty       = "STOCK_EMPTY"
	MsgInputName        = "INPUT_NAME"
	MsgInputPhone       = "INPUT_PHONE"
	MsgInputAddress     = "INPUT_ADDRESS"
	MsgInputPostal      = "INPUT_POSTAL"
	MsgInputDiscount    = "INPUT_DISCOUNT"
	MsgDiscountInvalid  = "DISCOUNT_INVALID"
	MsgDiscountSkipped  = "DISCOUNT_SKIPPED"
	MsgDiscountExpired  = "DISCOUNT_EXPIRED"
	MsgInputNotes       = "INPUT_NOTES"
	MsgOrderConfirmed   = "ORDER_CONFIRMED"
	MsgOrderCancelled   = "ORDER_CANCELLED"
	MsgNoCheckout       = "NO_CHECKOUT"
	MsgSessionExpired   = "SESSION_EXPIRED"
	MsgErrorSheet       = "ERROR_SHEET"
	MsgErrorGeneric     = "ERROR_GENERIC"
)

// A CartResult carries a business outcome. Reason is set when OK is false,
// e.g. [ErrOutOfStock].
type CartResult struct {
	OK      bool
	Message string
	Reason  error
	Cart    Cart
}

type ResultKind string

const (
	ResultNeedsInput       ResultKind = "needs_input"
	ResultNeedsDestination ResultKind = "needs_destination"
	ResultCompleted        ResultKind = "completed"
	ResultCancelled        ResultKind = "cancelled"
	ResultFailed           ResultKind = "failed"
	ResultNoCheckout       ResultKind = "no_checkout"
)

// A CheckoutResult tells the transport what happened and what to show next.
type CheckoutResult struct {
	Kind    ResultKind
	State   CheckoutState
	Message string
	Notice  string
	Promo   string
	Order   *Order
	Cart    Cart
}
