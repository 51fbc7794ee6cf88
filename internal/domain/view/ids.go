package view

// Identifiers shared by the router and the views that emit them.
const (
	CallbackCustomerInfo  = "customer_info"
	ActionCheckOrders     = "check_orders"
	ActionNextOrders      = "next_orders"
	ActionNextBestActions = "next_best_actions"
	CommandInsight        = "/insight"
	EventAppHomeOpened    = "app_home_opened"
	EventMessageDeleted   = "message_deleted"

	CallbackOrdersModal      = "orders_modal"
	CallbackNextActionsModal = "next_actions_modal"
)
