// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, the presence snapshot, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const version = "0.2.0"

// WebSocketHandler upgrades the request, creates a Client with a fresh
// connection id and hands it to the hub, which runs its pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr)
	if err := s.hub.Attach(client); err != nil {
		s.log.Warn().Err(err).Msg("rejecting connection")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Connections int    `json:"connections"`
	Online      int    `json:"online"`
	Uptime      string `json:"uptime"`
	Timestamp   string `json:"timestamp"`
}

// HealthHandler reports liveness together with connection and presence counts.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Version:     version,
		Connections: s.hub.ConnectionCount(),
		Online:      s.hub.Registry().Len(),
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// PresenceResponse is the HTTP view of the presence snapshot.
type PresenceResponse struct {
	Count int               `json:"count"`
	Users []ConnectionEntry `json:"users"`
}

// PresenceHandler returns the users currently online in registration order.
func (s *Server) PresenceHandler(w http.ResponseWriter, _ *http.Request) {
	users := s.hub.Registry().Snapshot()
	writeJSON(w, http.StatusOK, PresenceResponse{Count: len(users), Users: users})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// TestPageHandler serves an HTML page for trying the websocket endpoint by hand:
// register an identity, watch presence, and send messages to other users.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Presence WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { 
            border: 1px solid #ccc; 
            height: 300px; 
            padding: 10px; 
            overflow-y: scroll; 
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { 
            width: 300px; 
            padding: 5px; 
            margin-right: 10px;
        }
        button { 
            padding: 5px 15px; 
            background-color: #007cba; 
            color: white; 
            border: none; 
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { 
            margin: 10px 0; 
            padding: 5px; 
            border-radius: 3px;
        }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Presence WebSocket Test</h1>
    
    <div id="status" class="status disconnected">Disconnected</div>
    
    <div>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
        <input type="text" id="userInput" placeholder="Your user id..." disabled>
        <button id="registerButton" onclick="register()" disabled>Register</button>
    </div>
    <div>
        <input type="text" id="receiverInput" placeholder="Receiver user id..." disabled>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="online" class="status">Online: none</div>
    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const userInput = document.getElementById('userInput');
        const receiverInput = document.getElementById('receiverInput');
        const registerButton = document.getElementById('registerButton');
        const onlineDiv = document.getElementById('online');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addMessage(message, type = 'info') {
            const messageElement = document.createElement('div');
            messageElement.style.margin = '5px 0';
            messageElement.style.padding = '3px';
            
            if (type === 'sent') {
                messageElement.style.color = 'blue';
                messageElement.textContent = 'You -> ' + message;
            } else if (type === 'received') {
                messageElement.style.color = 'green';
                messageElement.textContent = message;
            } else {
                messageElement.style.color = 'gray';
                messageElement.textContent = message;
            }
            
            messagesDiv.appendChild(messageElement);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            if (connected) {
                statusDiv.textContent = 'Connected';
                statusDiv.className = 'status connected';
                [messageInput, userInput, receiverInput, sendButton, registerButton].forEach(el => el.disabled = false);
                connectButton.textContent = 'Disconnect';
            } else {
                statusDiv.textContent = 'Disconnected';
                statusDiv.className = 'status disconnected';
                [messageInput, userInput, receiverInput, sendButton, registerButton].forEach(el => el.disabled = true);
                connectButton.textContent = 'Connect';
            }
        }

        function connect() {
            ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
            
            ws.onopen = function(event) {
                addMessage('Connected to presence server');
                updateStatus(true);
            };
            
            ws.onmessage = function(event) {
                const msg = JSON.parse(event.data);
                if (msg.type === 'presence') {
                    const ids = msg.users.map(u => u.userId);
                    onlineDiv.textContent = 'Online: ' + (ids.length ? ids.join(', ') : 'none');
                } else if (msg.type === 'receive') {
                    addMessage(msg.senderId + ': ' + msg.text, 'received');
                } else {
                    addMessage(event.data);
                }
            };
            
            ws.onclose = function(event) {
                addMessage('Connection closed');
                updateStatus(false);
                ws = null;
            };
            
            ws.onerror = function(error) {
                addMessage('Connection error: ' + error);
                updateStatus(false);
            };
        }

        function disconnect() {
            if (ws) {
                ws.close();
            }
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                disconnect();
            } else {
                connect();
            }
        }

        function register() {
            const userId = userInput.value.trim();
            if (userId && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({type: 'register', userId: userId}));
            }
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            const receiverId = receiverInput.value.trim();
            if (text && receiverId && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({type: 'send', senderId: userInput.value.trim(), receiverId: receiverId, text: text}));
                addMessage(receiverId + ': ' + text, 'sent');
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
	_, _ = fmt.Fprint(w, html)
}
