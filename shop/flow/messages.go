package flow

// User-facing texts of the shop conversations.
const (
	msgPromptTitle       = "Enter the product title:"
	msgDuplicateTitle    = "A product with that title already exists. Enter another title:"
	msgPromptPrice       = "Enter the product price:"
	msgInvalidPrice      = "Please enter a valid non-negative price:"
	msgPromptDescription = "Enter the product description:"
	msgPromptStock       = "Enter the product keys, separated by ';':"
	msgPromptChannel     = "Enter the ID of the channel to publish the listing in:"
	msgBadChannel        = "That channel cannot be used. Enter a valid channel ID:"
	msgCreateFailed      = "The product could not be saved. The action was cancelled."
	msgPublishFailed     = "The product was saved, but the listing could not be published."
	msgPublished         = "Product published."

	msgSelectProduct = "Select the product to edit:"
	msgSelectField   = "Select the field to edit:"
	msgPromptLink    = "Send the link of the message where the listing was published:"
	msgBadLink       = "That link does not point to a known listing. The action was cancelled."
	msgGoneProduct   = "The product behind that listing no longer exists. The action was cancelled."
	msgPromptValue   = "Enter the new value:"
	msgUpdateFailed  = "The update could not be saved. The action was cancelled."
	msgRefreshFailed = "The change was saved, but the listing could not be refreshed."
	msgUpdated       = "Product updated."

	msgSelectDelete = "Select the product to delete:"
	msgDeleted      = "Product deleted."
	msgDeleteGone   = "Product not found."

	msgNoProducts = "There are no products yet."
	msgTimeout    = "The action timed out and was cancelled."
)
