package browser

// Page-side scripts. Each is a function expression evaluated with
// arguments through Runtime.callFunctionOn.

const showBadgeJS = `(id, text, verdict, score, style) => {
	const old = document.getElementById(id);
	if (old) old.remove();
	const badge = document.createElement('span');
	badge.id = id;
	badge.textContent = text;
	badge.dataset.verdict = verdict;
	badge.dataset.score = score;
	badge.setAttribute('style', style);
	const subject = document.querySelector('h2.hP');
	if (subject) {
		subject.appendChild(badge);
	} else {
		document.body.insertBefore(badge, document.body.firstChild);
	}
}`

const showStatusJS = `(id, message, ok, ttl) => {
	const old = document.getElementById(id);
	if (old) old.remove();
	const el = document.createElement('div');
	el.id = id;
	el.className = ok ? 'status-ok' : 'status-error';
	el.textContent = message;
	el.setAttribute('style', 'position: fixed; bottom: 20px; right: 20px; z-index: 10001; padding: 10px 16px; border-radius: 4px; color: #fff; background: ' + (ok ? '#28a745' : '#dc3545'));
	document.body.appendChild(el);
	setTimeout(() => el.remove(), ttl);
}`

const removeAllJS = `(ids) => {
	for (const id of ids) {
		for (let el = document.getElementById(id); el; el = document.getElementById(id)) {
			el.remove();
		}
	}
}`

// The click handler is installed once and reads its settings from a
// window property, so re-arming only swaps the settings object.
const armLinkGuardJS = `(settings) => {
	window.__inboxSentryGuard = settings;
	if (window.__inboxSentryGuardInstalled) return;
	window.__inboxSentryGuardInstalled = true;

	const trusted = (href, domains) => {
		let host;
		try { host = new URL(href, location.href).hostname.toLowerCase(); } catch (e) { return false; }
		return domains.some(d => host === d || host.endsWith('.' + d));
	};

	document.addEventListener('click', (event) => {
		const s = window.__inboxSentryGuard;
		if (!s || !s.armed) return;
		const link = event.target.closest && event.target.closest('a[href]');
		if (!link || !link.closest(s.containers)) return;
		const href = link.href;
		if (!href || trusted(href, s.trusted)) return;

		event.preventDefault();
		event.stopPropagation();

		const overlay = document.createElement('div');
		overlay.id = s.overlayId;
		overlay.setAttribute('style', 'position: fixed; inset: 0; background: rgba(0,0,0,0.5); z-index: 10000;');
		const dialog = document.createElement('div');
		dialog.id = s.dialogId;
		dialog.setAttribute('style', 'position: fixed; top: 50%; left: 50%; transform: translate(-50%,-50%); z-index: 10001; background: #fff; padding: 20px; border-radius: 8px; max-width: 480px; border-top: 6px solid ' + s.color);
		const title = document.createElement('h3');
		title.textContent = 'Warning: this email was flagged as ' + s.level;
		title.style.color = s.color;
		const target = document.createElement('p');
		target.textContent = href;
		target.style.wordBreak = 'break-all';
		const back = document.createElement('button');
		back.textContent = 'Go Back';
		const proceed = document.createElement('button');
		proceed.textContent = 'Proceed Anyway';
		const close = () => { overlay.remove(); dialog.remove(); };
		back.onclick = close;
		overlay.onclick = close;
		proceed.onclick = () => { close(); window.open(href, '_blank', 'noopener'); };
		dialog.append(title, target, back, proceed);
		document.body.append(overlay, dialog);
	}, true);
}`
