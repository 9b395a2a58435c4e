/*
Package errors classifies the failures a document store can return.

The proxy never translates store errors; it hands them back exactly as the
underlying client produced them. This package lets callers ask what kind of
failure they got, whichever backend raised it:

	resp, err := proxy.GetByID(ctx, "order-1", pk, nil)
	if err != nil {
	    if errors.IsNotFound(err) {
	        // no document with that id in that partition
	    }
	    if errors.IsThrottled(err) {
	        // back off per the hosting application's policy
	    }
	    return err
	}

Classification understands Azure SDK response errors (*azcore.ResponseError),
DynamoDB throughput exceptions and the typed errors defined here:

	err := errors.NewNotFoundError("orders", "123")
	err := errors.NewValidationError("id", "document has no id")
	err := errors.NewConditionFailedError("replace", "_etag = :etag")

The typed errors support wrapping and errors.Is against the package sentinels.
*/
package errors
