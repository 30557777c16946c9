// Package sharepoint implements the ContentStore port against the
// SharePoint REST API.
//
// Two authentication modes are supported, selected by the
// sharepoint.auth_mode config key:
//
//   - "sts" (default): legacy username/password sign-in. A SAML
//     assertion is posted to the online STS and the returned binary
//     security token is exchanged for the rtFa/FedAuth session cookies.
//   - "aad": Azure AD app-only client credentials. Requests carry a
//     bearer token obtained via the OAuth2 client-credentials grant.
//
// Change queries are bounded by two change tokens of the form
// "1;3;{listId};{ticks};-1" and the returned records are re-filtered
// client-side to the half-open window [start, end).
package sharepoint
