package app

// OpenAPISpec is the OpenAPI document served at /docs
var OpenAPISpec = []byte(`openapi: 3.0.3
info:
  title: Hower Prospector API
  description: Instagram prospecting backend. Ingests messaging webhooks, maintains a live prospect list and dispatches keyword autoresponders.
  version: 1.0.0
paths:
  /webhook:
    get:
      summary: Webhook subscription verification
      parameters:
        - name: hub.mode
          in: query
          schema: { type: string }
        - name: hub.verify_token
          in: query
          schema: { type: string }
        - name: hub.challenge
          in: query
          schema: { type: string }
      responses:
        '200': { description: Challenge echoed }
        '401': { description: Verification failed }
    post:
      summary: Webhook event delivery
      responses:
        '200': { description: Events accepted }
        '401': { description: Invalid payload signature }
  /api/v1/prospects:
    get:
      summary: List prospects for an account
      parameters:
        - name: account_id
          in: query
          required: true
          schema: { type: string }
        - name: state
          in: query
          schema:
            type: string
            enum: [no_response, follow_up, invited]
      responses:
        '200': { description: Prospect list, freshest conversation first }
        '404': { description: Unknown account }
  /api/v1/prospects/{counterpartyId}/messages:
    get:
      summary: Conversation history with a counterparty
      parameters:
        - name: counterpartyId
          in: path
          required: true
          schema: { type: string }
        - name: account_id
          in: query
          required: true
          schema: { type: string }
      responses:
        '200': { description: Messages in chronological order }
    post:
      summary: Send a manual message
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [account_id, message]
              properties:
                account_id: { type: string }
                message: { type: string, maxLength: 1000 }
                is_invitation: { type: boolean }
      responses:
        '201': { description: Message sent }
        '400': { description: Invalid message }
        '404': { description: Unknown account }
  /api/v1/autoresponders:
    get:
      summary: List autoresponders in priority order
      parameters:
        - name: account_id
          in: query
          required: true
          schema: { type: string }
      responses:
        '200': { description: Autoresponder list }
    post:
      summary: Create an autoresponder
      responses:
        '201': { description: Created }
        '400': { description: Invalid configuration }
  /api/v1/autoresponders/sent-log:
    get:
      summary: Automated-send audit trail, newest first
      parameters:
        - name: account_id
          in: query
          required: true
          schema: { type: string }
        - name: limit
          in: query
          schema: { type: integer, maximum: 500 }
      responses:
        '200': { description: Sent log entries }
  /api/v1/autoresponders/{autoresponderId}:
    get:
      summary: Get an autoresponder
      responses:
        '200': { description: Autoresponder }
        '404': { description: Not found }
    put:
      summary: Update an autoresponder
      responses:
        '200': { description: Updated }
        '404': { description: Not found }
    delete:
      summary: Delete an autoresponder
      responses:
        '204': { description: Deleted }
        '404': { description: Not found }
  /api/v1/accounts:
    get:
      summary: List connected accounts
      responses:
        '200': { description: Accounts without credentials }
  /api/v1/assistant/suggest:
    post:
      summary: Draft a reply for a conversation
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [account_id, counterparty_id]
              properties:
                account_id: { type: string }
                counterparty_id: { type: string }
      responses:
        '200': { description: Drafted reply text }
  /healthz:
    get:
      summary: Liveness probe
      responses:
        '200': { description: OK }
  /readyz:
    get:
      summary: Readiness probe
      responses:
        '200': { description: Ready }
        '503': { description: Database unreachable }
`)
