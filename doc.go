// Package main provides the entry point of QRMenu-Admin, the access control
// service of a multi-tenant QR menu platform. It resolves the roles and
// permissions of principals, decides page navigations and guards every
// restaurant's menus, tables and orders against other tenants. The service
// runs on Fiber with gorm for persistence and optional Redis for sessions
// and cache invalidation across instances.
package main
