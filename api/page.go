package api

// widgetPageHTML renders a widget session in the browser. The session id is
// taken from the page path (/widget/{id}/page).
const widgetPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>pageqr</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
    background: #f7f7f7;
    min-height: 100vh;
  }
  #qr-safe-area {
    position: fixed;
    bottom: 24px;
    left: 24px;
    padding: 16px;
  }
  #qr-safe-area.position-right { left: auto; right: 24px; }
  #floating-logo {
    width: 44px; height: 44px;
    border-radius: 50%;
    background: #fff;
    box-shadow: 0 2px 8px rgba(0,0,0,0.15);
    display: flex; align-items: center; justify-content: center;
    cursor: pointer;
    transition: transform 0.2s;
  }
  #floating-logo.expanded { transform: scale(1.1); }
  #floating-logo img { width: 28px; height: 28px; border-radius: 6px; }
  #qr-container {
    display: none;
    position: absolute;
    bottom: 72px;
    left: 0;
    background: #fff;
    border-radius: 12px;
    padding: 16px;
    box-shadow: 0 4px 16px rgba(0,0,0,0.15);
    width: 288px;
  }
  #qr-safe-area.position-right #qr-container { left: auto; right: 0; }
  #qr-container.visible { display: block; }
  #qr-code { width: 256px; height: 256px; display: flex; align-items: center; justify-content: center; text-align: center; color: #888; font-size: 13px; }
  #qr-code img { width: 256px; height: 256px; }
  #controls-container { margin-top: 8px; text-align: right; }
  #toggle-logo-btn { border: 1px solid #ddd; background: #fff; border-radius: 6px; padding: 4px 8px; cursor: pointer; }
  #toggle-logo-btn.active { background: #eef; }
  #title-container { margin-top: 8px; }
  #site-name { font-weight: 600; font-size: 14px; display: inline; }
  #site-secure { font-size: 11px; margin-left: 6px; padding: 1px 6px; border-radius: 4px; background: #fdecea; color: #b3261e; }
  #site-secure.secure { background: #e7f5ec; color: #1e7b3c; }
  #page-title { color: #666; font-size: 12px; }
  #copy-tooltip {
    position: fixed; top: 24px; left: 50%; transform: translateX(-50%);
    background: #333; color: #fff; padding: 8px 16px; border-radius: 6px;
    opacity: 0; transition: opacity 0.2s;
  }
  #copy-tooltip.show { opacity: 1; }
  .theme-dark #floating-logo, .theme-dark #qr-container { background: #1a1a1a; color: #e0e0e0; }
  .theme-dark #page-title { color: #888; }
</style>
</head>
<body>
<div id="qr-safe-area">
  <div id="floating-logo"><img alt=""></div>
  <div id="qr-container">
    <div id="qr-code"></div>
    <div id="controls-container"><button id="toggle-logo-btn" class="control-btn"></button></div>
    <div id="title-container"><div id="site-name"></div><span id="site-secure"></span><div id="page-title"></div></div>
  </div>
</div>
<div id="copy-tooltip"></div>
<script>
(function() {
  var base = location.pathname.replace(/\/page\/?$/, '');
  var safeArea = document.getElementById('qr-safe-area');
  var button = document.getElementById('floating-logo');
  var icon = button.querySelector('img');
  var container = document.getElementById('qr-container');
  var code = document.getElementById('qr-code');
  var toggleBtn = document.getElementById('toggle-logo-btn');
  var siteName = document.getElementById('site-name');
  var siteSecure = document.getElementById('site-secure');
  var pageTitle = document.getElementById('page-title');
  var tooltip = document.getElementById('copy-tooltip');
  var currentImg = null;

  function clearChildren(el) {
    while (el.firstChild) el.removeChild(el.firstChild);
  }

  function render(st) {
    safeArea.classList.toggle('position-right', st.settings.position === 'right');
    safeArea.classList.toggle('theme-dark', st.settings.theme === 'dark');
    safeArea.classList.toggle('active', st.active);
    button.classList.toggle('expanded', st.expanded);
    if (icon.getAttribute('src') !== st.icon) icon.setAttribute('src', st.icon);
    icon.setAttribute('alt', st.siteName);
    container.classList.toggle('visible', st.hasContainer && st.visible);
    toggleBtn.classList.toggle('active', st.settings.showLogo);
    toggleBtn.title = st.toggleLabel;
    toggleBtn.textContent = st.toggleLabel;
    siteName.textContent = st.siteName;
    siteSecure.classList.toggle('secure', st.secure);
    siteSecure.textContent = st.secure ? 'https' : 'not secure';
    siteSecure.title = st.secure ? 'Connection is secure' : 'Connection is not secure';
    pageTitle.textContent = st.title;

    if (st.qrImage) {
      if (!currentImg) {
        currentImg = document.createElement('img');
        currentImg.setAttribute('alt', 'QR Code');
        clearChildren(code);
        code.appendChild(currentImg);
      }
      currentImg.setAttribute('src', st.qrImage);
    } else {
      currentImg = null;
      clearChildren(code);
      if (st.message) code.textContent = st.message;
    }

    tooltip.textContent = st.tooltip || '';
    tooltip.classList.toggle('show', st.tooltipVisible);
  }

  function call(method, path) {
    return fetch(base + path, { method: method })
      .then(function(r) { return r.json(); })
      .then(function(st) { if (st && st.settings) render(st); })
      .catch(function() {});
  }

  button.addEventListener('mouseenter', function() { call('POST', '/enter'); });
  safeArea.addEventListener('mouseleave', function() { call('POST', '/leave'); });
  toggleBtn.addEventListener('click', function(e) {
    e.stopPropagation();
    call('POST', '/toggle-logo');
  });

  call('GET', '');
  setInterval(function() { call('GET', ''); }, 500);
})();
</script>
</body>
</html>`
