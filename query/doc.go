/*
Package query is the queryable abstraction handed to query conditions.

A Condition is any function from Query to Query. Backends translate the final
Query into their own language: Cosmos DB SQL, DynamoDB filter and projection
expressions, or in-memory evaluation for the mock container.

	active := func(q query.Query) query.Query {
	    return q.Where("status", query.Eq, "active").
	        Where("total", query.Gt, 100).
	        OrderByDesc("createdAt").
	        Top(20)
	}

	docs, err := proxy.GetDocuments(ctx, active, nil)

Nested properties use dotted paths ("customer.address.city").
*/
package query
