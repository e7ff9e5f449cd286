package server

import "net/http"

// demoPageHTML is the interactive demo page served at /. It talks to the
// JSON API with plain fetch calls so the whole flow works from a browser
// with no build step.
const demoPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>VaultDoor</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            max-width: 800px;
            margin: 50px auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
        }
        h1 { color: #0078d4; }
        input, button {
            padding: 10px;
            margin: 5px 0;
            font-size: 14px;
            border-radius: 4px;
            border: 1px solid #ddd;
        }
        button {
            background: #0078d4;
            color: white;
            border: none;
            cursor: pointer;
            font-weight: 500;
        }
        button:hover { background: #005a9e; }
        .response {
            margin-top: 20px;
            padding: 15px;
            background: #f9f9f9;
            border-left: 3px solid #0078d4;
            border-radius: 4px;
            font-family: monospace;
            font-size: 12px;
        }
        .section { margin: 30px 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#128272; VaultDoor</h1>
        <p>One door to your secret store</p>

        <div class="section">
            <h3>Set Secret</h3>
            <input type="text" id="setName" placeholder="Secret name" style="width: 300px;">
            <input type="text" id="setValue" placeholder="Secret value" style="width: 300px;">
            <button onclick="setSecret()">Send</button>
        </div>

        <div class="section">
            <h3>Get Secret</h3>
            <input type="text" id="getName" placeholder="Secret name" style="width: 300px;">
            <button onclick="getSecret()">Receive</button>
        </div>

        <div class="section">
            <h3>List All Secrets (Requires Bearer Token)</h3>
            <input type="text" id="token" placeholder="Bearer token" style="width: 300px;">
            <button onclick="listSecrets()">List</button>
        </div>

        <div id="response" class="response" style="display:none;"></div>
    </div>

    <script>
        function showResponse(data) {
            const el = document.getElementById('response');
            el.style.display = 'block';
            el.textContent = JSON.stringify(data, null, 2);
        }

        async function setSecret() {
            const name = document.getElementById('setName').value;
            const value = document.getElementById('setValue').value;
            try {
                const res = await fetch('/secrets', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({name, value})
                });
                const data = await res.json();
                showResponse(data);
            } catch (e) {
                showResponse({error: e.message});
            }
        }

        async function getSecret() {
            const name = document.getElementById('getName').value;
            try {
                const res = await fetch('/secrets/' + encodeURIComponent(name));
                const data = await res.json();
                showResponse(data);
            } catch (e) {
                showResponse({error: e.message});
            }
        }

        async function listSecrets() {
            const token = document.getElementById('token').value;
            try {
                const res = await fetch('/api/secrets', {
                    headers: {'Authorization': 'Bearer ' + token}
                });
                const data = await res.json();
                showResponse(data);
            } catch (e) {
                showResponse({error: e.message});
            }
        }
    </script>
</body>
</html>
`

func (s *Server) handleDemoPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(demoPageHTML))
}
