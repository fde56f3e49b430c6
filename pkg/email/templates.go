package email

import "fmt"

// OrderDispatchedEmail builds the subject, plain-text and HTML bodies of
// the "out for delivery" notification sent when an order's vehicle leaves
// the depot.
func OrderDispatchedEmail(orderID int64, etaMinutes int) (subject, text, html string) {
	subject = fmt.Sprintf("Your order #%d is out for delivery", orderID)
	if etaMinutes > 0 {
		text = fmt.Sprintf("Good news! Order #%d has left our store and should arrive in about %d minutes.", orderID, etaMinutes)
		html = fmt.Sprintf(dispatchedTemplate, orderID, fmt.Sprintf("It should arrive in about <strong>%d minutes</strong>.", etaMinutes))
	} else {
		text = fmt.Sprintf("Good news! Order #%d has left our store and is on its way.", orderID)
		html = fmt.Sprintf(dispatchedTemplate, orderID, "It is on its way to you now.")
	}
	return subject, text, html
}

// OrderDeliveredEmail builds the subject and bodies of the delivery
// confirmation sent after reconciliation.
func OrderDeliveredEmail(orderID int64) (subject, text, html string) {
	subject = fmt.Sprintf("Your order #%d has been delivered", orderID)
	text = fmt.Sprintf("Order #%d has been delivered. Thank you for shopping with us!", orderID)
	html = fmt.Sprintf(deliveredTemplate, orderID)
	return subject, text, html
}

// --- HTML Template Definitions ---

const dispatchedTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Order Out for Delivery</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Your order #%d is out for delivery!</h2>
	<p>Good news! Your groceries have left our store. %s</p>
	<p>You can track your order from your account page.</p>
</body>
</html>
`

const deliveredTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Order Delivered</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Order #%d delivered</h2>
	<p>Your groceries have arrived. Thank you for shopping with us!</p>
	<p>If anything is missing or damaged, reply to this email and we will make it right.</p>
</body>
</html>
`
