package core

// Operation represents an entity store operation, one of Create, List, Filter, Get, Update, Delete
type Operation string

// all supported entity operations
const (
	OperationCreate Operation = "create"
	OperationList   Operation = "list"
	OperationFilter Operation = "filter"
	OperationGet    Operation = "get"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)
